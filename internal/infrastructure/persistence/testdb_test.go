package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory SQLite database with the invoicing schema.
// A single connection keeps every statement on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, autoMigrate(db))
	return db
}

var (
	testIssued = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	testDue    = testIssued.AddDate(0, 0, 30)
)

func seedCustomer(t *testing.T, db *gorm.DB, email string) *partner.Customer {
	t.Helper()
	customer, err := partner.NewCustomer("Customer "+email, email)
	require.NoError(t, err)
	require.NoError(t, NewGormCustomerRepository(db).Save(context.Background(), customer))
	return customer
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock *int) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(name, "", decimal.RequireFromString(price), stock != nil, stock)
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Save(context.Background(), product))
	return product
}

func seedInvoice(t *testing.T, db *gorm.DB, number string, customerID uuid.UUID, due time.Time) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(number, customerID, testIssued, due)
	require.NoError(t, err)
	require.NoError(t, NewGormInvoiceRepository(db).Create(context.Background(), inv))
	return inv
}

func intPtr(v int) *int { return &v }
