package locker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedLocker_SerializesSameUser(t *testing.T) {
	l := New()

	var (
		active  int32
		overlap int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := l.Lock(context.Background(), "user-1")
			if err != nil {
				t.Errorf("lock failed: %v", err)
				return
			}
			defer unlock()

			if atomic.AddInt32(&active, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}

	wg.Wait()

	if overlap != 0 {
		t.Fatal("two goroutines held the same user lock")
	}
	if l.size() != 0 {
		t.Fatalf("expected slots to be released, got %d", l.size())
	}
}

func TestKeyedLocker_DifferentUsersDoNotBlock(t *testing.T) {
	l := New()

	unlockA, err := l.Lock(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlockB, err := l.Lock(ctx, "user-b")
	if err != nil {
		t.Fatalf("expected independent lock, got %v", err)
	}
	unlockB()
}

func TestKeyedLocker_ContextCancellation(t *testing.T) {
	l := New()

	unlock, err := l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := l.Lock(ctx, "user-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()

	if l.size() != 0 {
		t.Fatalf("expected slots to be released, got %d", l.size())
	}
}

func TestKeyedLocker_UnlockIsIdempotent(t *testing.T) {
	l := New()

	unlock, err := l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	unlock()
	unlock()

	again, err := l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("relock failed: %v", err)
	}
	again()
}
