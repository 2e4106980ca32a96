package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	resp      *CachedResponse
	expiresAt time.Time
}

// MemoryStore is a process-local Store used in tests and in deployments that
// run without Redis. Expired entries are dropped lazily on access.
type MemoryStore struct {
	mu          sync.Mutex
	entries     map[string]memoryEntry
	retention   time.Duration
	inFlightTTL time.Duration
	now         func() time.Time
}

// NewMemoryStore builds an in-memory store.
func NewMemoryStore(retention, inFlightTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]memoryEntry),
		retention:   retention,
		inFlightTTL: inFlightTTL,
		now:         time.Now,
	}
}

// Begin claims the key or replays its committed response.
func (s *MemoryStore) Begin(ctx context.Context, key string) (*CachedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if ok && s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	if ok {
		if entry.resp == nil {
			return nil, ErrInFlight
		}
		return entry.resp, nil
	}

	s.entries[key] = memoryEntry{expiresAt: s.now().Add(s.inFlightTTL)}
	return nil, nil
}

// Commit records the successful response for the retention window.
func (s *MemoryStore) Commit(ctx context.Context, key string, resp CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{resp: &resp, expiresAt: s.now().Add(s.retention)}
	return nil
}

// Abort releases a claimed key after a failure.
func (s *MemoryStore) Abort(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if ok && entry.resp == nil {
		delete(s.entries, key)
	}
	return nil
}
