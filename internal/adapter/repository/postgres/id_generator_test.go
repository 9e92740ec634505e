package postgres

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func TestULIDGenerator_MonotonicWithinMillisecond(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	gen := NewULIDGeneratorWithClock(fixedClock{at: at})

	ids := make([]string, 200)
	for i := range ids {
		ids[i] = gen.Generate()
	}

	if !sort.StringsAreSorted(ids) {
		t.Fatal("expected ids minted in the same millisecond to be sorted")
	}

	parsed, err := ulid.ParseStrict(ids[0])
	if err != nil {
		t.Fatalf("invalid ULID %q: %v", ids[0], err)
	}
	if got := ulid.Time(parsed.Time()); !got.Equal(at) {
		t.Fatalf("expected timestamp %s, got %s", at, got)
	}
}

func TestULIDGenerator_ConcurrentUnique(t *testing.T) {
	gen := NewULIDGenerator()

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
		wg   sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				id := gen.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 400 {
		t.Fatalf("expected 400 unique ids, got %d", len(seen))
	}
}

func TestUUIDGeneratorProducesV4(t *testing.T) {
	id := NewUUIDGenerator().Generate()

	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("invalid UUID %q: %v", id, err)
	}
	if parsed.Version() != 4 {
		t.Errorf("version = %d, want 4", parsed.Version())
	}
}
