// Package idempotency lets clients retry booking submissions safely. The
// first request with a given Idempotency-Key runs; retries replay its
// response.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrInProgress is returned when the original request has not finished yet.
var ErrInProgress = errors.New("a request with this idempotency key is still in progress")

const pendingMarker = "pending"

// Record is a stored response.
type Record struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store keeps idempotency records in Redis.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore creates a Store. Records expire after ttl.
func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Reserve claims k for a new request. It returns (nil, true) when the caller
// owns the key, the stored record when the original request completed, and
// ErrInProgress while it is still running.
func (s *Store) Reserve(ctx context.Context, k string) (*Record, bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(k), pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := s.client.Get(ctx, s.key(k)).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or released between the two calls; try once more.
		ok, err = s.client.SetNX(ctx, s.key(k), pendingMarker, s.ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return nil, true, nil
		}
		return nil, false, ErrInProgress
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if raw == pendingMarker {
		return nil, false, ErrInProgress
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &rec, false, nil
}

// Complete stores the final response for k.
func (s *Store) Complete(ctx context.Context, k string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(k), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

// Release forgets k so the request can be retried from scratch.
func (s *Store) Release(ctx context.Context, k string) error {
	return s.client.Del(ctx, s.key(k)).Err()
}
