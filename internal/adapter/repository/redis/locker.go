package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultLockTTL is how long a held lock survives if its owner dies.
const DefaultLockTTL = 30 * time.Second

// ErrLockNotAcquired is returned when the lock is still held when ctx ends.
var ErrLockNotAcquired = errors.New("user lock not acquired")

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// UserLocker implements usecase.UserLocker with a Redis SET NX PX lock per user.
type UserLocker struct {
	client       *redis.Client
	prefix       string
	ttl          time.Duration
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewUserLocker creates a new UserLocker.
func NewUserLocker(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *UserLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	return &UserLocker{
		client:       client,
		prefix:       "lock:withdrawal:",
		ttl:          ttl,
		pollInterval: 20 * time.Millisecond,
		logger:       logger.With().Str("component", "user_locker").Logger(),
	}
}

// Lock blocks until the user's lock is acquired or ctx is done.
func (l *UserLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := l.prefix + userID
	token := uuid.NewString()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.pollInterval
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !acquired {
			return ErrLockNotAcquired
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, userID, ctx.Err())
		}
		return nil, err
	}

	unlock := func() {
		// The caller's ctx may already be cancelled; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to release user lock")
		}
	}

	return unlock, nil
}
