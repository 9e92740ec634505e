package postgres

import (
	"crypto/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/iho/pensionledger/internal/usecase"
)

// ULIDGenerator issues ULIDs for contributions, withdrawals and outbox
// events. IDs minted within the same millisecond stay strictly increasing,
// so they sort in creation order.
type ULIDGenerator struct {
	mu      sync.Mutex
	clock   usecase.Clock
	entropy *ulid.MonotonicEntropy
}

// NewULIDGenerator creates a ULIDGenerator stamped by the system clock.
func NewULIDGenerator() *ULIDGenerator {
	return NewULIDGeneratorWithClock(usecase.SystemClock{})
}

// NewULIDGeneratorWithClock creates a ULIDGenerator stamped by clock.
func NewULIDGeneratorWithClock(clock usecase.Clock) *ULIDGenerator {
	return &ULIDGenerator{
		clock:   clock,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate returns the next ULID.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.clock.Now()), g.entropy).String()
}

// UUIDGenerator generates random (v4) UUIDs, the key type of the users table.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate generates a new UUID.
func (g *UUIDGenerator) Generate() string {
	return uuid.NewString()
}
