// Package idempotency deduplicates create requests carrying a client-supplied
// key. Only successful responses are committed; a failed attempt releases the
// key so the client's retry can succeed.
//
// In-flight policy: strict non-blocking. A duplicate arriving while the first
// request with the same key is still executing is rejected with ErrInFlight
// rather than blocked, so the underlying side effect can never run twice.
package idempotency

import (
	"context"
	"errors"
)

// ErrInFlight signals a duplicate key whose first request has not committed yet.
var ErrInFlight = errors.New("idempotency key is in flight")

// CachedResponse is a committed response replayed for duplicate keys.
type CachedResponse struct {
	Body []byte `json:"body"`
}

// Store is the key dedup contract. Begin returns the committed response for
// a replayed key, or nil after atomically claiming a fresh key. Commit
// records a successful response for the retention window; Abort releases a
// claimed key after a failure.
type Store interface {
	Begin(ctx context.Context, key string) (*CachedResponse, error)
	Commit(ctx context.Context, key string, resp CachedResponse) error
	Abort(ctx context.Context, key string) error
}
