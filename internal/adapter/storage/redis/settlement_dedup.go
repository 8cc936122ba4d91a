package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SettlementDedupStore implements ports.SettlementDedup using Redis.
// It only serves as a fast path for redelivered webhook events; the locked
// status check inside the settlement transaction stays authoritative.
type SettlementDedupStore struct {
	client *goredis.Client
	prefix string
}

// NewSettlementDedupStore creates a new Redis-backed settlement dedup store.
func NewSettlementDedupStore(client *goredis.Client) *SettlementDedupStore {
	return &SettlementDedupStore{
		client: client,
		prefix: "settlement:",
	}
}

// AlreadySettled reports whether a reference was recently settled.
// Returns false, nil if the key does not exist.
func (s *SettlementDedupStore) AlreadySettled(ctx context.Context, reference string) (bool, error) {
	_, err := s.client.Get(ctx, s.prefix+reference).Result()
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis settlement get: %w", err)
	}
	return true, nil
}

// MarkSettled records a settled reference with TTL.
func (s *SettlementDedupStore) MarkSettled(ctx context.Context, reference string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+reference, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis settlement set: %w", err)
	}
	return nil
}
