package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	committedPrefix = "idem:resp:"
	inFlightPrefix  = "idem:wip:"
)

// RedisStore keeps idempotency state in Redis so dedup survives process
// restarts and is shared across replicas.
type RedisStore struct {
	client      *redis.Client
	retention   time.Duration
	inFlightTTL time.Duration
}

// NewRedisStore builds a store with the given retention window for committed
// responses and TTL for in-flight markers.
func NewRedisStore(client *redis.Client, retention, inFlightTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention, inFlightTTL: inFlightTTL}
}

// Begin returns the committed response for a known key, claims a fresh key,
// or reports ErrInFlight when another request holds the key.
func (s *RedisStore) Begin(ctx context.Context, key string) (*CachedResponse, error) {
	payload, err := s.client.Get(ctx, committedPrefix+key).Bytes()
	switch {
	case err == nil:
		var resp CachedResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	case err != redis.Nil:
		return nil, err
	}

	claimed, err := s.client.SetNX(ctx, inFlightPrefix+key, 1, s.inFlightTTL).Result()
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrInFlight
	}
	return nil, nil
}

// Commit stores the successful response and releases the in-flight marker.
func (s *RedisStore) Commit(ctx context.Context, key string, resp CachedResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, committedPrefix+key, payload, s.retention).Err(); err != nil {
		return err
	}
	return s.client.Del(ctx, inFlightPrefix+key).Err()
}

// Abort releases a claimed key after a failed attempt so retries can proceed.
func (s *RedisStore) Abort(ctx context.Context, key string) error {
	return s.client.Del(ctx, inFlightPrefix+key).Err()
}
