package telemetry_test

import (
	"testing"
	"time"

	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type dbTestRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&dbTestRow{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func TestInstrumentDB(t *testing.T) {
	db := openTestDB(t)
	meter, reader := setupTestMeter(t)
	sr := setupTestTracer(t)

	dbm, err := telemetry.InstrumentDB(db, meter, telemetry.DBConfig{
		Tracing:            true,
		DBName:             "invoicing",
		SlowQueryThreshold: time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbm.Stop() })

	require.NoError(t, db.Create(&dbTestRow{Name: "a"}).Error)
	require.NoError(t, db.Create(&dbTestRow{Name: "b"}).Error)
	var rows []dbTestRow
	require.NoError(t, db.Find(&rows).Error)
	require.NoError(t, db.Model(&dbTestRow{}).Where("name = ?", "a").Update("name", "c").Error)

	metrics := collect(t, reader)
	queries := metrics["db_query_total"]
	assert.Equal(t, int64(2), sumFor(t, queries, telemetry.AttrDBOperation.String("INSERT")))
	assert.Equal(t, int64(1), sumFor(t, queries, telemetry.AttrDBOperation.String("SELECT")))
	assert.Equal(t, int64(1), sumFor(t, queries, telemetry.AttrDBOperation.String("UPDATE")))

	_, slowRecorded := metrics["db_slow_query_total"]
	assert.False(t, slowRecorded, "no statement exceeds an hour")

	maxConns, ok := metrics["db_pool_connections_max"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, maxConns.DataPoints, 1)

	assert.NotEmpty(t, sr.Ended(), "otelgorm emits spans")
}

func TestInstrumentDB_SlowQueries(t *testing.T) {
	db := openTestDB(t)
	meter, reader := setupTestMeter(t)

	_, err := telemetry.InstrumentDB(db, meter, telemetry.DBConfig{SlowQueryThreshold: time.Nanosecond}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, db.Create(&dbTestRow{Name: "slow"}).Error)

	slow := collect(t, reader)["db_slow_query_total"]
	assert.Equal(t, int64(1), sumFor(t, slow, telemetry.AttrDBTable.String("db_test_rows")))
}
