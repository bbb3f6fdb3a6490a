package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyKeyPrefix namespaces processed-event keys
const DefaultIdempotencyKeyPrefix = "invoicing:event:processed:"

// RedisIdempotencyStore shares processed-event keys across instances
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing client. The
// client is owned by the caller.
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultIdempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed uses SETNX so concurrent deliveries agree on a single winner
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed reports whether key is recorded
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return n > 0, nil
}

// Close is a no-op, the factory closes the shared client
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

// InMemoryIdempotencyStore keeps processed-event keys in process memory.
// Suitable for single-instance deployments and tests.
type InMemoryIdempotencyStore struct {
	store *memoryStore
}

// NewInMemoryIdempotencyStore creates a store that sweeps expired keys every
// five minutes
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{store: newMemoryStore(5 * time.Minute)}
}

// MarkProcessed records key unless it is already recorded and unexpired
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return s.store.setNX(key, nil, ttl), nil
}

// IsProcessed reports whether key is recorded and unexpired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	_, ok := s.store.get(key)
	return ok, nil
}

// Close stops the sweeper
func (s *InMemoryIdempotencyStore) Close() error {
	s.store.close()
	return nil
}

// Size returns the number of stored keys including expired ones not yet swept
func (s *InMemoryIdempotencyStore) Size() int {
	return s.store.len()
}

var (
	_ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
)
