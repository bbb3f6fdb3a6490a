package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCounter(t *testing.T) {
	meter, reader := setupTestMeter(t)
	ctx := context.Background()

	c, err := telemetry.NewCounter(meter, "test_requests_total", "Requests", "{request}")
	require.NoError(t, err)

	c.Inc(ctx, telemetry.AttrHTTPMethod.String("GET"))
	c.Inc(ctx, telemetry.AttrHTTPMethod.String("GET"))
	c.Add(ctx, 5, telemetry.AttrHTTPMethod.String("POST"))

	m := collect(t, reader)["test_requests_total"]
	assert.Equal(t, int64(2), sumFor(t, m, telemetry.AttrHTTPMethod.String("GET")))
	assert.Equal(t, int64(5), sumFor(t, m, telemetry.AttrHTTPMethod.String("POST")))
}

func TestHistogram(t *testing.T) {
	meter, reader := setupTestMeter(t)
	ctx := context.Background()

	h, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "test_duration_seconds",
		Unit:       "s",
		Boundaries: telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)

	h.Record(ctx, 0.02)
	h.RecordDuration(ctx, 300*time.Millisecond)

	m := collect(t, reader)["test_duration_seconds"]
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	assert.InDelta(t, 0.32, dp.Sum, 1e-9)
	assert.Equal(t, telemetry.HTTPDurationBuckets, dp.Bounds)
}
