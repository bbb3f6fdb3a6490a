package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	// Status filters by stored status. InvoiceStatusOverdue selects unpaid,
	// non-cancelled invoices whose due date is before AsOf.
	Status *InvoiceStatus
	AsOf   time.Time
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID loads an invoice with its items ordered by position
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate loads an invoice with its items and holds an
	// exclusive row lock on the invoice until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber loads an invoice by its invoice number
	FindByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindItemByID loads a single item
	FindItemByID(ctx context.Context, itemID uuid.UUID) (*InvoiceItem, error)

	// FindAll lists invoices without items
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, int64, error)

	// Create inserts a new invoice and its items. A duplicate invoice number
	// yields shared.ErrAlreadyExists.
	Create(ctx context.Context, invoice *Invoice) error

	// Update persists due date and notes. Rows whose stored status is PAID or
	// CANCELLED are refused with an InvalidStateError.
	Update(ctx context.Context, invoice *Invoice) error

	// InsertItem inserts a line item
	InsertItem(ctx context.Context, item *InvoiceItem) error

	// UpdateItem persists quantity and total of a line item
	UpdateItem(ctx context.Context, item *InvoiceItem) error

	// DeleteItem deletes a line item
	DeleteItem(ctx context.Context, itemID uuid.UUID) error

	// SumItemTotals returns the sum of persisted item totals
	SumItemTotals(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)

	// UpdateTotals writes subtotal, tax and total only, regardless of status
	UpdateTotals(ctx context.Context, invoiceID uuid.UUID, totals Totals) error

	// TransitionStatus sets the status when the stored status is one of from.
	// It reports whether a row changed, which lets callers act only on the
	// edge of a transition.
	TransitionStatus(ctx context.Context, invoiceID uuid.UUID, to InvoiceStatus, at time.Time, from ...InvoiceStatus) (bool, error)

	// Delete removes an invoice and, by cascade, its items
	Delete(ctx context.Context, id uuid.UUID) error
}
