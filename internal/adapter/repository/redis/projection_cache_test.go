package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase/mocks"
)

func testProjection() *domain.BalanceProjection {
	return &domain.BalanceProjection{
		UserID:          "user-1",
		TotalAmount:     domain.MustMoney("450"),
		AvailableAmount: domain.MustMoney("100"),
		LockedAmount:    domain.ZeroMoney(),
		CalculatedAt:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestProjectionCache_ReadThrough(t *testing.T) {
	client, mr := newMiniredis(t)

	store := mocks.NewMockBalanceProjectionRepository()
	if err := store.Upsert(context.Background(), testProjection()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	reads := 0
	store.FindByUserIDFunc = func(ctx context.Context, userID string) (*domain.BalanceProjection, error) {
		reads++
		return testProjection(), nil
	}

	cache := NewProjectionCache(client, store, time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		projection, err := cache.FindByUserID(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if projection.AvailableAmount.String() != "100.00" {
			t.Fatalf("available = %s, want 100.00", projection.AvailableAmount)
		}
	}

	if reads != 1 {
		t.Errorf("underlying store read %d times, want 1", reads)
	}
	if ttl := mr.TTL(cache.prefix + "user-1"); ttl != time.Minute {
		t.Errorf("ttl = %s, want 1m", ttl)
	}
}

func TestProjectionCache_MissIsNotCached(t *testing.T) {
	client, mr := newMiniredis(t)

	cache := NewProjectionCache(client, mocks.NewMockBalanceProjectionRepository(), time.Minute, zerolog.Nop())

	projection, err := cache.FindByUserID(context.Background(), "user-1")
	if err != nil || projection != nil {
		t.Fatalf("expected nil, nil on miss, got %+v, %v", projection, err)
	}
	if mr.Exists(cache.prefix + "user-1") {
		t.Error("a miss must not be cached")
	}
}

func TestProjectionCache_UpsertWritesThrough(t *testing.T) {
	client, mr := newMiniredis(t)

	store := mocks.NewMockBalanceProjectionRepository()
	cache := NewProjectionCache(client, store, time.Minute, zerolog.Nop())

	if err := cache.Upsert(context.Background(), testProjection()); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if store.UpsertCalls != 1 {
		t.Errorf("underlying upserts = %d, want 1", store.UpsertCalls)
	}
	if !mr.Exists(cache.prefix + "user-1") {
		t.Error("expected the projection to be cached")
	}
}

func TestProjectionCache_FailedUpsertEvicts(t *testing.T) {
	client, mr := newMiniredis(t)

	store := mocks.NewMockBalanceProjectionRepository()
	cache := NewProjectionCache(client, store, time.Minute, zerolog.Nop())

	if err := cache.Upsert(context.Background(), testProjection()); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	writeErr := errors.New("database down")
	store.UpsertFunc = func(ctx context.Context, projection *domain.BalanceProjection) error {
		return writeErr
	}

	if err := cache.Upsert(context.Background(), testProjection()); !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
	if mr.Exists(cache.prefix + "user-1") {
		t.Error("expected the cached entry to be evicted")
	}
}

func TestProjectionCache_RedisDownFallsBack(t *testing.T) {
	client, mr := newMiniredis(t)

	store := mocks.NewMockBalanceProjectionRepository()
	if err := store.Upsert(context.Background(), testProjection()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cache := NewProjectionCache(client, store, time.Minute, zerolog.Nop())
	mr.Close()

	projection, err := cache.FindByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("expected fallback to the store, got %v", err)
	}
	if projection.TotalAmount.String() != "450.00" {
		t.Errorf("total = %s, want 450.00", projection.TotalAmount)
	}
}

func TestProjectionCache_CorruptEntryIsIgnored(t *testing.T) {
	client, mr := newMiniredis(t)

	store := mocks.NewMockBalanceProjectionRepository()
	if err := store.Upsert(context.Background(), testProjection()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cache := NewProjectionCache(client, store, time.Minute, zerolog.Nop())
	mr.HSet(cache.prefix+"user-1", "data", "{not json")

	projection, err := cache.FindByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if projection.AvailableAmount.String() != "100.00" {
		t.Errorf("available = %s, want 100.00", projection.AvailableAmount)
	}
}

func TestProjectionCache_OlderUpsertKeepsNewerEntry(t *testing.T) {
	client, _ := newMiniredis(t)

	store := mocks.NewMockBalanceProjectionRepository()
	cache := NewProjectionCache(client, store, time.Minute, zerolog.Nop())

	older := testProjection()
	older.AvailableAmount = domain.MustMoney("450")

	newer := testProjection()
	newer.CalculatedAt = older.CalculatedAt.Add(time.Second)

	if err := cache.Upsert(context.Background(), newer); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := cache.Upsert(context.Background(), older); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	store.FindByUserIDFunc = func(ctx context.Context, userID string) (*domain.BalanceProjection, error) {
		t.Fatal("expected a cache hit")
		return nil, nil
	}

	projection, err := cache.FindByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if projection.AvailableAmount.String() != "100.00" {
		t.Errorf("available = %s, want 100.00", projection.AvailableAmount)
	}
	if !projection.CalculatedAt.Equal(newer.CalculatedAt) {
		t.Errorf("calculated at = %s, want %s", projection.CalculatedAt, newer.CalculatedAt)
	}
}

func TestProjectionCache_StaleFillKeepsNewerEntry(t *testing.T) {
	client, _ := newMiniredis(t)

	store := mocks.NewMockBalanceProjectionRepository()
	cache := NewProjectionCache(client, store, time.Minute, zerolog.Nop())

	older := testProjection()
	older.AvailableAmount = domain.MustMoney("450")

	newer := testProjection()
	newer.CalculatedAt = older.CalculatedAt.Add(time.Second)

	// The store hands back the older row while a newer one is written meanwhile.
	store.FindByUserIDFunc = func(ctx context.Context, userID string) (*domain.BalanceProjection, error) {
		store.FindByUserIDFunc = nil
		if err := cache.Upsert(ctx, newer); err != nil {
			t.Errorf("upsert failed: %v", err)
		}
		return older, nil
	}

	if _, err := cache.FindByUserID(context.Background(), "user-1"); err != nil {
		t.Fatalf("find failed: %v", err)
	}

	projection, err := cache.FindByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if projection.AvailableAmount.String() != "100.00" {
		t.Errorf("available = %s, want 100.00", projection.AvailableAmount)
	}
}

func TestProjectionCache_InsertIfAbsent(t *testing.T) {
	client, mr := newMiniredis(t)

	store := mocks.NewMockBalanceProjectionRepository()
	cache := NewProjectionCache(client, store, time.Minute, zerolog.Nop())

	stored, err := cache.InsertIfAbsent(context.Background(), testProjection())
	if err != nil || !stored {
		t.Fatalf("expected first insert to be stored, got %v, %v", stored, err)
	}
	if !mr.Exists(cache.prefix + "user-1") {
		t.Fatal("expected the projection to be cached")
	}

	mr.Del(cache.prefix + "user-1")

	later := testProjection()
	later.CalculatedAt = later.CalculatedAt.Add(time.Hour)
	stored, err = cache.InsertIfAbsent(context.Background(), later)
	if err != nil || stored {
		t.Fatalf("expected second insert to be skipped, got %v, %v", stored, err)
	}
	if mr.Exists(cache.prefix + "user-1") {
		t.Error("a skipped insert must not be cached")
	}
}
