package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/iho/pensionledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.RedisEnabled() {
		t.Fatalf("expected redis to be disabled by default")
	}

	if cfg.KafkaEnabled() {
		t.Fatalf("expected kafka to be disabled by default")
	}

	if cfg.ProjectorWorkers != 8 {
		t.Fatalf("expected 8 projector workers, got %d", cfg.ProjectorWorkers)
	}

	if cfg.WithdrawalLockTTL != 30*time.Second {
		t.Fatalf("expected 30s lock ttl, got %s", cfg.WithdrawalLockTTL)
	}

	if cfg.DatabaseStatementTimeout != 15*time.Second {
		t.Fatalf("expected 15s statement timeout, got %s", cfg.DatabaseStatementTimeout)
	}

	if cfg.LogCaller {
		t.Fatalf("expected caller annotation to be off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("OUTBOX_BATCH_SIZE", "10")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" || !cfg.RedisEnabled() {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" || !cfg.KafkaEnabled() {
		t.Fatalf("expected two kafka brokers, got %v", cfg.KafkaBrokers)
	}

	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected two CORS origins, got %v", cfg.CORSAllowedOrigins)
	}

	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}

	if cfg.OutboxBatchSize != 10 {
		t.Fatalf("expected outbox batch size override, got %d", cfg.OutboxBatchSize)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	original := os.Getenv("HTTP_READ_TIMEOUT")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")
	t.Cleanup(func() {
		t.Setenv("HTTP_READ_TIMEOUT", original)
	})

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadInvalidWorkers(t *testing.T) {
	t.Setenv("PROJECTOR_WORKERS", "many")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for non-numeric worker count")
	}
}
