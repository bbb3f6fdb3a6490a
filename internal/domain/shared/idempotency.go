package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which events a handler has already processed
type IdempotencyStore interface {
	// MarkProcessed records key for ttl. It returns false when key was
	// already recorded and has not expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig controls duplicate suppression for event handlers
type IdempotencyConfig struct {
	Enabled bool
	// TTL after which the same event may be handled again
	TTL time.Duration
}

// DefaultIdempotencyConfig keeps processed keys for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: 24 * time.Hour}
}
