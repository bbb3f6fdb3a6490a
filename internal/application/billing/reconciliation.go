package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
)

// reconcile recomputes the derived totals of an invoice from its persisted
// items and writes them with a targeted update. It runs inside the caller's
// transaction, after the item change and under the invoice row lock.
func reconcile(ctx context.Context, invoices billing.InvoiceRepository, reconciler *billing.Reconciler, invoiceID uuid.UUID) (billing.Totals, error) {
	subtotal, err := invoices.SumItemTotals(ctx, invoiceID)
	if err != nil {
		return billing.Totals{}, fmt.Errorf("reconcile invoice %s: %w", invoiceID, err)
	}

	totals := reconciler.FromSubtotal(subtotal)
	if err := invoices.UpdateTotals(ctx, invoiceID, totals); err != nil {
		return billing.Totals{}, fmt.Errorf("reconcile invoice %s: %w", invoiceID, err)
	}
	return totals, nil
}
