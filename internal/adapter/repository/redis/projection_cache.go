package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
)

// DefaultProjectionTTL bounds how long a cached projection survives without a refresh.
const DefaultProjectionTTL = 10 * time.Minute

// storeScript writes the projection hash at KEYS[1] unless the entry already
// holds a later calculation. ARGV is the calculation time in unix micros, the
// encoded projection and the TTL in milliseconds. It returns 1 when written.
var storeScript = redis.NewScript(`
local at = redis.call("HGET", KEYS[1], "at")
if at and tonumber(at) > tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "at", ARGV[1], "data", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// ProjectionCache is a read-through Redis cache in front of a durable
// usecase.BalanceProjectionRepository. Redis failures degrade to the
// underlying store. Entries are hashes keyed by calculation time so an older
// projection never replaces a newer one, whatever order the writes land in.
type ProjectionCache struct {
	client *redis.Client
	next   usecase.BalanceProjectionRepository
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewProjectionCache creates a new ProjectionCache.
func NewProjectionCache(client *redis.Client, next usecase.BalanceProjectionRepository, ttl time.Duration, logger zerolog.Logger) *ProjectionCache {
	if ttl <= 0 {
		ttl = DefaultProjectionTTL
	}

	return &ProjectionCache{
		client: client,
		next:   next,
		prefix: "balance:",
		ttl:    ttl,
		logger: logger.With().Str("component", "projection_cache").Logger(),
	}
}

type cachedProjection struct {
	CalculatedAt time.Time `json:"calculated_at"`
	UserID       string    `json:"user_id"`
	Total        string    `json:"total"`
	Available    string    `json:"available"`
	Locked       string    `json:"locked"`
}

// FindByUserID serves the cached projection or loads and caches it.
func (c *ProjectionCache) FindByUserID(ctx context.Context, userID string) (*domain.BalanceProjection, error) {
	raw, err := c.client.HGet(ctx, c.prefix+userID, "data").Bytes()
	switch {
	case err == nil:
		projection, decodeErr := decodeProjection(raw)
		if decodeErr == nil {
			return projection, nil
		}
		c.logger.Warn().Err(decodeErr).Str("user_id", userID).Msg("discarding unreadable cached projection")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("projection cache read failed")
	}

	projection, err := c.next.FindByUserID(ctx, userID)
	if err != nil || projection == nil {
		return projection, err
	}

	c.store(ctx, projection)

	return projection, nil
}

// Upsert writes through to the underlying store, then refreshes the cache.
func (c *ProjectionCache) Upsert(ctx context.Context, projection *domain.BalanceProjection) error {
	if err := c.next.Upsert(ctx, projection); err != nil {
		// A stale entry must not outlive a failed write.
		c.client.Del(ctx, c.prefix+projection.UserID)
		return err
	}

	c.store(ctx, projection)

	return nil
}

// InsertIfAbsent writes through to the underlying store and caches the
// projection only when the store accepted it.
func (c *ProjectionCache) InsertIfAbsent(ctx context.Context, projection *domain.BalanceProjection) (bool, error) {
	stored, err := c.next.InsertIfAbsent(ctx, projection)
	if err != nil || !stored {
		return stored, err
	}

	c.store(ctx, projection)

	return true, nil
}

func (c *ProjectionCache) store(ctx context.Context, projection *domain.BalanceProjection) {
	raw, err := json.Marshal(cachedProjection{
		UserID:       projection.UserID,
		Total:        projection.TotalAmount.String(),
		Available:    projection.AvailableAmount.String(),
		Locked:       projection.LockedAmount.String(),
		CalculatedAt: projection.CalculatedAt,
	})
	if err != nil {
		return
	}

	written, err := storeScript.Run(ctx, c.client,
		[]string{c.prefix + projection.UserID},
		projection.CalculatedAt.UnixMicro(), raw, c.ttl.Milliseconds(),
	).Int()
	switch {
	case err != nil:
		c.logger.Warn().Err(err).Str("user_id", projection.UserID).Msg("projection cache write failed")
	case written == 0:
		c.logger.Debug().Str("user_id", projection.UserID).Msg("kept newer cached projection")
	}
}

func decodeProjection(raw []byte) (*domain.BalanceProjection, error) {
	var cached cachedProjection
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, err
	}

	total, err := domain.ParseMoney(cached.Total)
	if err != nil {
		return nil, err
	}

	available, err := domain.ParseMoney(cached.Available)
	if err != nil {
		return nil, err
	}

	locked, err := domain.ParseMoney(cached.Locked)
	if err != nil {
		return nil, err
	}

	return &domain.BalanceProjection{
		UserID:          cached.UserID,
		TotalAmount:     total,
		AvailableAmount: available,
		LockedAmount:    locked,
		CalculatedAt:    cached.CalculatedAt.UTC(),
	}, nil
}
