package usecase

import (
	"context"
	"time"

	"github.com/iho/pensionledger/internal/domain"
)

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	// GetByID returns domain.ErrUserNotFound when no user exists.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// ContributionRepository defines data access for contributions and their vestings.
// Lists are ordered by contributed_at ascending.
type ContributionRepository interface {
	Save(ctx context.Context, tx Transaction, contribution *domain.Contribution) error
	FindByUserID(ctx context.Context, userID string) ([]*domain.Contribution, error)
	FindByUserIDForUpdate(ctx context.Context, tx Transaction, userID string) ([]*domain.Contribution, error)
	UpdateRedeemed(ctx context.Context, tx Transaction, contribution *domain.Contribution, updatedAt time.Time) error
}

// WithdrawalRepository defines data access for processed withdrawals.
type WithdrawalRepository interface {
	// Create returns domain.ErrDuplicateWithdrawal when the id is already used.
	Create(ctx context.Context, tx Transaction, withdrawal *domain.Withdrawal) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Withdrawal, error)
}

// BalanceProjectionRepository stores balance projections keyed by user id.
type BalanceProjectionRepository interface {
	// FindByUserID returns nil, nil when no projection exists.
	FindByUserID(ctx context.Context, userID string) (*domain.BalanceProjection, error)
	// Upsert replaces the stored projection unless it was calculated later
	// than the given one.
	Upsert(ctx context.Context, projection *domain.BalanceProjection) error
	// InsertIfAbsent stores the projection only when the user has none and
	// reports whether it did.
	InsertIfAbsent(ctx context.Context, projection *domain.BalanceProjection) (bool, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs operations that failed with transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// UserLocker serializes withdrawals of the same user.
type UserLocker interface {
	// Lock blocks until the user's lock is held or ctx is done.
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

// EventPublisher dispatches domain events after the producing transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// WithdrawalPersistencePort allocates and persists an approved withdrawal atomically.
type WithdrawalPersistencePort interface {
	Process(ctx context.Context, input WithdrawalPersistenceInput) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key so a failed request can be retried.
	Release(ctx context.Context, key string) error
}
