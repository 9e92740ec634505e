package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/pensionledger/internal/usecase"
)

// processingMarker is stored while the first request for a key is in flight.
const processingMarker = "processing"

// claimScript returns the current value of KEYS[1], or stores ARGV[1] with
// a PX of ARGV[2] and returns nil when the key is free.
var claimScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	return current
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return false
`)

// IdempotencyStore implements usecase.IdempotencyStore on Redis strings
// under the "idempotency:" prefix.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client, prefix: "idempotency:"}
}

// CheckAndSet atomically claims key with response, or with a processing
// marker when response is nil. A key that is already claimed reports true
// together with its stored value.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	value := []byte(processingMarker)
	if response != nil {
		value = response
	}

	existing, err := claimScript.Run(ctx, s.client, []string{s.prefix + key}, value, ttlMillis(ttl)).Text()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil, nil
	case err != nil:
		return false, nil, err
	}

	return true, []byte(existing), nil
}

// Update replaces the key's value with the final response.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, response, time.Duration(ttlMillis(ttl))*time.Millisecond).Err()
}

// Release deletes the key.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func ttlMillis(ttl time.Duration) int64 {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	if ms := ttl.Milliseconds(); ms > 0 {
		return ms
	}
	return 1
}
