package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
)

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by its ID regardless of status
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindActiveByID finds an active customer, inactive ones are reported as not found
	FindActiveByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByEmail finds a customer by email
	FindByEmail(ctx context.Context, email string) (*Customer, error)

	// FindAll finds customers matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Customer, int64, error)

	// Save creates or updates a customer. A duplicate email yields ErrAlreadyExists.
	Save(ctx context.Context, customer *Customer) error

	// ExistsByEmail checks if a customer with the given email exists
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
