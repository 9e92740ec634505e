package locker

import (
	"context"
	"fmt"
	"sync"
)

// KeyedLocker implements usecase.UserLocker inside one process. Each user id
// maps to a one-slot channel that is dropped once nobody holds or waits on it.
type KeyedLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// New creates a new KeyedLocker.
func New() *KeyedLocker {
	return &KeyedLocker{slots: make(map[string]*slot)}
}

// Lock blocks until the user's lock is acquired or ctx is done.
func (l *KeyedLocker) Lock(ctx context.Context, userID string) (func(), error) {
	s := l.acquireSlot(userID)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseSlot(userID, s)
		return nil, fmt.Errorf("user lock %s: %w", userID, ctx.Err())
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			<-s.ch
			l.releaseSlot(userID, s)
		})
	}

	return unlock, nil
}

func (l *KeyedLocker) acquireSlot(userID string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[userID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[userID] = s
	}
	s.refs++

	return s
}

func (l *KeyedLocker) releaseSlot(userID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, userID)
	}
}

// size reports how many user slots are live.
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.slots)
}
