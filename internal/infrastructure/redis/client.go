package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ConnectOptions bounds how long startup waits for Redis to answer.
type ConnectOptions struct {
	PingAttempts int
	PingTimeout  time.Duration
	RetryBackoff time.Duration
}

// DefaultConnectOptions tolerates Redis starting a few seconds after the
// service in compose-style deployments.
var DefaultConnectOptions = ConnectOptions{
	PingAttempts: 5,
	PingTimeout:  2 * time.Second,
	RetryBackoff: 200 * time.Millisecond,
}

// NewClient parses redisURL and returns a client that has answered PING.
func NewClient(ctx context.Context, redisURL string, logger zerolog.Logger) (*redis.Client, error) {
	return Connect(ctx, redisURL, DefaultConnectOptions, logger)
}

// Connect is NewClient with explicit retry bounds.
func Connect(ctx context.Context, redisURL string, opts ConnectOptions, logger zerolog.Logger) (*redis.Client, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(parsed)

	if err := ping(ctx, client, opts, logger); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", parsed.Addr, err)
	}

	return client, nil
}

func ping(ctx context.Context, client *redis.Client, opts ConnectOptions, logger zerolog.Logger) error {
	attempts := opts.PingAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.RetryBackoff
	b.MaxElapsedTime = 0

	operation := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("backoff", wait).Msg("redis not ready, retrying")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
	return backoff.RetryNotify(operation, policy, notify)
}
