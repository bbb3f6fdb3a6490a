package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// Create inserts a payment. A duplicate transaction ID yields shared.ErrAlreadyExists.
	Create(ctx context.Context, payment *Payment) error

	// FindByID finds a payment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByInvoice lists the payments of an invoice ordered by paid_at
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)

	// SumByInvoice returns the total paid for an invoice, zero when there are no payments
	SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)

	// CountByInvoice returns the number of payments recorded for an invoice
	CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)

	// ExistsByTransactionID checks if a transaction ID is already recorded
	ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error)
}
