package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/muhammadjehanzaib/sultan-store/pkg/kafka"
)

const keyPrefix = "inventory:event:"

// IdempotencyStore records processed event IDs in Redis so every replica of
// the consumer group shares one view of what was handled.
type IdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ kafka.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a Redis-backed idempotency store whose keys
// expire after ttl.
func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Contains reports whether eventID was recorded and has not expired.
func (s *IdempotencyStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Add records eventID. An existing key keeps its original expiry.
func (s *IdempotencyStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.SetNX(ctx, keyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx event %s: %w", eventID, err)
	}
	return nil
}

// Ping reports whether Redis is reachable. It backs the readiness check.
func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
