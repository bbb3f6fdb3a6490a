package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID regardless of status
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindActiveByID finds an active product, inactive ones are reported as not found
	FindActiveByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs finds multiple products by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindAll finds all products matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, int64, error)

	// Save creates a product or updates its descriptive fields and status.
	// Stock and inventory tracking of an existing product are left untouched.
	Save(ctx context.Context, product *Product) error

	// SetStock locks the product row and overwrites the stock level of a
	// tracked product
	SetStock(ctx context.Context, id uuid.UUID, quantity int) (*Product, error)

	// DecreaseStock locks the product row, checks tracking and availability and
	// decrements stock with a guarded atomic update. The stock is left
	// unchanged on failure.
	DecreaseStock(ctx context.Context, id uuid.UUID, quantity int) (*Product, error)
}
