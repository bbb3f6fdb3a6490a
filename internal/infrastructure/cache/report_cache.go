package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/invoicing/backend/internal/application/report"
	"github.com/redis/go-redis/v9"
)

// DefaultReportKeyPrefix namespaces report entries in a shared Redis
const DefaultReportKeyPrefix = "invoicing:"

// RedisReportCache stores JSON encoded report results in Redis
type RedisReportCache struct {
	client    *redis.Client
	keyPrefix string
	scanCount int64
}

// NewRedisReportCache creates a report cache on an existing client
func NewRedisReportCache(client *redis.Client, keyPrefix string) *RedisReportCache {
	if keyPrefix == "" {
		keyPrefix = DefaultReportKeyPrefix
	}
	return &RedisReportCache{client: client, keyPrefix: keyPrefix, scanCount: 100}
}

// Get decodes the cached value for key into dest
func (c *RedisReportCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read report cache: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return true, nil
}

// Set encodes value as JSON and stores it for ttl
func (c *RedisReportCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write report cache: %w", err)
	}
	return nil
}

// DeletePrefix scans for matching keys and unlinks them in batches
func (c *RedisReportCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+prefix+"*", c.scanCount).Iterator()
	batch := make([]string, 0, c.scanCount)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) >= c.scanCount {
			if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to invalidate report cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan report cache: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate report cache: %w", err)
		}
	}
	return nil
}

// InMemoryReportCache is the single-process report cache used without Redis
type InMemoryReportCache struct {
	store *memoryStore
}

// NewInMemoryReportCache creates an in-memory report cache
func NewInMemoryReportCache() *InMemoryReportCache {
	return &InMemoryReportCache{store: newMemoryStore(time.Minute)}
}

// Get decodes the cached value for key into dest
func (c *InMemoryReportCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.store.get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return true, nil
}

// Set stores a JSON copy of value so callers cannot mutate cached results
func (c *InMemoryReportCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	c.store.set(key, raw, ttl)
	return nil
}

// DeletePrefix removes every key starting with prefix
func (c *InMemoryReportCache) DeletePrefix(_ context.Context, prefix string) error {
	c.store.deletePrefix(prefix)
	return nil
}

// Close stops the expiry sweeper
func (c *InMemoryReportCache) Close() error {
	c.store.close()
	return nil
}

var (
	_ report.ReportCache = (*RedisReportCache)(nil)
	_ report.ReportCache = (*InMemoryReportCache)(nil)
)
