package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation
type DBConfig struct {
	// Tracing registers otelgorm so every statement becomes a span
	Tracing bool
	// DBName is reported as db.name on spans
	DBName string
	// SlowQueryThreshold marks spans and counts slow statements
	SlowQueryThreshold time.Duration
}

// DBMetrics holds the instruments fed by the gorm callbacks
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	slowThreshold  time.Duration
	registration   metric.Registration
}

type dbStartKey struct{}

// InstrumentDB registers query metrics, pool gauges and optionally otelgorm
// tracing on db
func InstrumentDB(db *gorm.DB, meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBMetrics, error) {
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	m, err := newDBMetrics(meter, cfg.SlowQueryThreshold)
	if err != nil {
		return nil, err
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{otelgorm.WithoutQueryVariables()}
		if cfg.DBName != "" {
			opts = append(opts, otelgorm.WithDBName(cfg.DBName))
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, err
		}
	}
	if err := registerDBCallbacks(db, m); err != nil {
		return nil, err
	}
	if err := m.observePool(db, meter); err != nil {
		return nil, err
	}

	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.Tracing),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold))
	return m, nil
}

func newDBMetrics(meter metric.Meter, slowThreshold time.Duration) (*DBMetrics, error) {
	queryTotal, err := NewCounter(meter, "db_query_total", "Database statements by operation", "{query}")
	if err != nil {
		return nil, err
	}
	queryDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	slowQueryTotal, err := NewCounter(meter, "db_slow_query_total", "Statements slower than the threshold", "{query}")
	if err != nil {
		return nil, err
	}
	return &DBMetrics{
		queryTotal:     queryTotal,
		queryDuration:  queryDuration,
		slowQueryTotal: slowQueryTotal,
		slowThreshold:  slowThreshold,
	}, nil
}

// observePool reports sql.DBStats on each collection
func (m *DBMetrics) observePool(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		return nil
	}, conns, maxConns)
	return err
}

// Stop unregisters the pool callback
func (m *DBMetrics) Stop() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

func (m *DBMetrics) record(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	start, ok := ctx.Value(dbStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)

	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, elapsed, AttrDBOperation.String(operation))

	span := trace.SpanFromContext(ctx)
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}
	if elapsed <= m.slowThreshold {
		return
	}
	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}
	m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}

// registerDBCallbacks hooks timing around every gorm operation
func registerDBCallbacks(db *gorm.DB, m *DBMetrics) error {
	before := func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		tx.Statement.Context = context.WithValue(ctx, dbStartKey{}, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperation(tx.Statement.SQL.String())
			}
			m.record(tx, op)
		}
	}

	cb := db.Callback()
	steps := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("telemetry:before_create", before) },
		func() error { return cb.Query().Before("gorm:query").Register("telemetry:before_query", before) },
		func() error { return cb.Update().Before("gorm:update").Register("telemetry:before_update", before) },
		func() error { return cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before) },
		func() error { return cb.Row().Before("gorm:row").Register("telemetry:before_row", before) },
		func() error { return cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", before) },
		func() error { return cb.Create().After("gorm:create").Register("telemetry:after_create", after("INSERT")) },
		func() error { return cb.Query().After("gorm:query").Register("telemetry:after_query", after("SELECT")) },
		func() error { return cb.Update().After("gorm:update").Register("telemetry:after_update", after("UPDATE")) },
		func() error { return cb.Delete().After("gorm:delete").Register("telemetry:after_delete", after("DELETE")) },
		func() error { return cb.Row().After("gorm:row").Register("telemetry:after_row", after("")) },
		func() error { return cb.Raw().After("gorm:raw").Register("telemetry:after_raw", after("")) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func detectOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	switch op := strings.ToUpper(fields[0]); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return op
	case "WITH":
		return "SELECT"
	default:
		return "OTHER"
	}
}
