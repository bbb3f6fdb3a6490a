package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/invoicing/backend/internal/application/report"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the report cache and idempotency store from configuration.
// With Redis enabled and reachable both share one client, otherwise both
// fall back to in-memory implementations.
type Factory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	pingTimeout           time.Duration

	client      *redis.Client
	reports     report.ReportCache
	idempotency shared.IdempotencyStore
	closers     []func() error
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-memory stores. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithPingTimeout bounds the startup connectivity check
func WithPingTimeout(d time.Duration) FactoryOption {
	return func(f *Factory) {
		f.pingTimeout = d
	}
}

// NewFactory creates a factory. Call Connect before using the stores.
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		pingTimeout:           5 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("cache")
	return f
}

// Connect dials Redis when enabled and builds the stores
func (f *Factory) Connect(ctx context.Context) error {
	if f.cfg.Enabled {
		client, err := NewRedisClient(ctx, f.cfg, f.pingTimeout)
		if err == nil {
			f.client = client
			f.reports = NewRedisReportCache(client, DefaultReportKeyPrefix)
			f.idempotency = NewRedisIdempotencyStore(client, DefaultIdempotencyKeyPrefix)
			f.closers = append(f.closers, client.Close)
			f.logger.Info("Using Redis cache", zap.String("addr", f.cfg.Addr()))
			return nil
		}
		if !f.allowInMemoryFallback {
			return fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory cache. "+
			"Report caches and processed events are not shared between instances.",
			zap.Error(err))
	}

	reports := NewInMemoryReportCache()
	idempotency := NewInMemoryIdempotencyStore()
	f.reports = reports
	f.idempotency = idempotency
	f.closers = append(f.closers, reports.Close, idempotency.Close)
	return nil
}

// ReportCache returns the report cache. Nil before Connect.
func (f *Factory) ReportCache() report.ReportCache {
	return f.reports
}

// IdempotencyStore returns the processed-event store. Nil before Connect.
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	return f.idempotency
}

// UsingRedis reports whether Connect reached Redis
func (f *Factory) UsingRedis() bool {
	return f.client != nil
}

// Close releases the client or stops the in-memory sweepers
func (f *Factory) Close() error {
	var firstErr error
	for _, closeFn := range f.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}

// NewRedisClient creates a client and verifies it with PING
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}
