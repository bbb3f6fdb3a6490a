package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func enabledConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     0.5,
		ServiceName:       "invoicing-test",
		Insecure:          true,
		MetricsInterval:   time.Minute,
	}
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	cfg := config.TelemetryConfig{Enabled: false}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := telemetry.NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))

	core := telemetry.NewZapCore(lp, "invoicing", zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestProviders_Enabled(t *testing.T) {
	ctx := context.Background()
	originalTP := otel.GetTracerProvider()
	originalMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(originalTP)
		otel.SetMeterProvider(originalMP)
	})

	cfg := enabledConfig()
	logger := zap.NewNop()

	tp, err := telemetry.NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	mp, err := telemetry.NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())

	lp, err := telemetry.NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.True(t, lp.IsEnabled())

	core := telemetry.NewZapCore(lp, "invoicing", zapcore.WarnLevel)
	assert.False(t, core.Enabled(zapcore.InfoLevel))

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = tp.Shutdown(shutdownCtx)
	_ = mp.Shutdown(shutdownCtx)
	_ = lp.Shutdown(shutdownCtx)
}
