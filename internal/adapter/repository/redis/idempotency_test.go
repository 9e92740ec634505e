package redis

import (
	"context"
	"testing"
	"time"

	"github.com/iho/pensionledger/internal/usecase"
)

func TestIdempotencyStore_CheckAndSetExisting(t *testing.T) {
	client, _ := newMiniredis(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if err := client.Set(ctx, store.prefix+"key", "cached", time.Minute).Err(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	exists, resp, err := store.CheckAndSet(ctx, "key", nil, time.Minute)
	if err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}

	if !exists || string(resp) != "cached" {
		t.Fatalf("expected existing cached response, got exists=%v resp=%s", exists, resp)
	}
}

func TestIdempotencyStore_CheckAndSetLocksNewKey(t *testing.T) {
	client, _ := newMiniredis(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, resp, err := store.CheckAndSet(ctx, "pending", nil, time.Minute)
	if err != nil || exists || resp != nil {
		t.Fatalf("unexpected result: exists=%v resp=%v err=%v", exists, resp, err)
	}

	val, err := client.Get(ctx, store.prefix+"pending").Result()
	if err != nil || val != "processing" {
		t.Fatalf("expected placeholder lock, got val=%s err=%v", val, err)
	}
}

func TestIdempotencyStore_Update(t *testing.T) {
	client, _ := newMiniredis(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if err := store.Update(ctx, "complete", []byte("done"), time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	val, err := client.Get(ctx, store.prefix+"complete").Result()
	if err != nil || val != "done" {
		t.Fatalf("expected stored response, got val=%s err=%v", val, err)
	}
}

func TestIdempotencyStore_CheckAndSetWithResponse(t *testing.T) {
	client, _ := newMiniredis(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, _, err := store.CheckAndSet(ctx, "first", []byte("response"), time.Minute)
	if err != nil || exists {
		t.Fatalf("expected first claim to succeed, got exists=%v err=%v", exists, err)
	}

	exists, resp, err := store.CheckAndSet(ctx, "first", nil, time.Minute)
	if err != nil || !exists || string(resp) != "response" {
		t.Fatalf("expected stored response, got exists=%v resp=%s err=%v", exists, resp, err)
	}
}

func TestIdempotencyStore_Release(t *testing.T) {
	client, mr := newMiniredis(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "failed", nil, time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if err := store.Release(ctx, "failed"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	if mr.Exists(store.prefix + "failed") {
		t.Fatal("expected key to be deleted")
	}
}

func TestIdempotencyStore_ClaimCarriesTTL(t *testing.T) {
	client, mr := newMiniredis(t)

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	tests := []struct {
		key  string
		ttl  time.Duration
		want time.Duration
	}{
		{key: "explicit", ttl: 90 * time.Second, want: 90 * time.Second},
		{key: "default", ttl: 0, want: usecase.IdempotencyKeyTTL},
	}

	for _, tt := range tests {
		if _, _, err := store.CheckAndSet(ctx, tt.key, nil, tt.ttl); err != nil {
			t.Fatalf("%s: claim failed: %v", tt.key, err)
		}
		if got := mr.TTL(store.prefix + tt.key); got != tt.want {
			t.Fatalf("%s: expected ttl %s, got %s", tt.key, tt.want, got)
		}
	}

	mr.FastForward(91 * time.Second)

	exists, _, err := store.CheckAndSet(ctx, "explicit", nil, time.Minute)
	if err != nil || exists {
		t.Fatalf("expected an expired key to be claimable again, got exists=%v err=%v", exists, err)
	}
}
