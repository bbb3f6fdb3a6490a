package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockCustomerRepository creates a GormCustomerRepository with a mocked SQL connection
func newMockCustomerRepository(t *testing.T) (*GormCustomerRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormCustomerRepository(gormDB), mock, mockDB
}

func TestGormCustomerRepository_FindByID_SQL(t *testing.T) {
	t.Run("finds existing customer", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version", "name", "email", "status"}).
			AddRow(customerID, now, now, 1, "Acme", "billing@acme.test", "active")

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(customerID, 1).
			WillReturnRows(rows)

		customer, err := repo.FindByID(context.Background(), customerID)
		require.NoError(t, err)
		assert.Equal(t, customerID, customer.ID)
		assert.Equal(t, "billing@acme.test", customer.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to not found", func(t *testing.T) {
		repo, mock, mockDB := newMockCustomerRepository(t)
		defer mockDB.Close()

		customerID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1`).
			WithArgs(customerID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), customerID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormCustomerRepository_FindActiveByID_SQL(t *testing.T) {
	repo, mock, mockDB := newMockCustomerRepository(t)
	defer mockDB.Close()

	customerID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1 AND status = \$2`).
		WithArgs(customerID, partner.CustomerStatusActive, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindActiveByID(context.Background(), customerID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCustomerRepository_SQLite(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	acme, err := partner.NewCustomer("Acme", "Billing@Acme.test")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, acme))

	t.Run("finds by normalized email", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, " BILLING@acme.test ")
		require.NoError(t, err)
		assert.Equal(t, acme.ID, found.ID)

		exists, err := repo.ExistsByEmail(ctx, "billing@acme.test")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup, err := partner.NewCustomer("Acme 2", "billing@acme.test")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("inactive customer is hidden from active lookup", func(t *testing.T) {
		gone, err := partner.NewCustomer("Gone", "gone@example.test")
		require.NoError(t, err)
		require.NoError(t, gone.Deactivate())
		require.NoError(t, repo.Save(ctx, gone))

		_, err = repo.FindActiveByID(ctx, gone.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		found, err := repo.FindByID(ctx, gone.ID)
		require.NoError(t, err)
		assert.False(t, found.IsActive())
	})

	t.Run("lists with search and status filter", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Search = "ACME"
		filter.Filters["status"] = partner.CustomerStatusActive

		customers, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, customers, 1)
		assert.Equal(t, "Acme", customers[0].Name)
	})
}
