package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreFreshThenReplay(t *testing.T) {
	store := NewMemoryStore(time.Hour, 30*time.Second)
	ctx := context.Background()

	cached, err := store.Begin(ctx, "k1")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if cached != nil {
		t.Fatalf("fresh key should not replay")
	}

	if err := store.Commit(ctx, "k1", CachedResponse{Body: []byte(`{"id":"t1"}`)}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	cached, err = store.Begin(ctx, "k1")
	if err != nil {
		t.Fatalf("Begin after commit: %v", err)
	}
	if cached == nil || string(cached.Body) != `{"id":"t1"}` {
		t.Fatalf("expected committed body replayed, got %v", cached)
	}
}

func TestMemoryStoreInFlightDuplicate(t *testing.T) {
	store := NewMemoryStore(time.Hour, 30*time.Second)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "k1"); err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	if _, err := store.Begin(ctx, "k1"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight for duplicate, got %v", err)
	}
}

func TestMemoryStoreAbortReleasesKey(t *testing.T) {
	store := NewMemoryStore(time.Hour, 30*time.Second)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "k1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Abort(ctx, "k1"); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	cached, err := store.Begin(ctx, "k1")
	if err != nil {
		t.Fatalf("Begin after abort should be fresh, got %v", err)
	}
	if cached != nil {
		t.Fatalf("aborted attempt must not be cached")
	}
}

func TestMemoryStoreRetentionExpiry(t *testing.T) {
	store := NewMemoryStore(time.Hour, 30*time.Second)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	if _, err := store.Begin(ctx, "k1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Commit(ctx, "k1", CachedResponse{Body: []byte("x")}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// Beyond the retention window the key legitimately creates a new ticket.
	store.now = func() time.Time { return now.Add(61 * time.Minute) }
	cached, err := store.Begin(ctx, "k1")
	if err != nil {
		t.Fatalf("Begin after expiry: %v", err)
	}
	if cached != nil {
		t.Fatalf("expired entry must not replay")
	}
}
