package billing

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// settlement is the outcome of settling an invoice
type settlement struct {
	// Settled is true only for the call that moved the invoice into PAID
	Settled bool
	// Products are the products whose stock was decreased
	Products []*catalog.Product
}

// settle moves a locked invoice into PAID and takes stock for its tracked
// items. The conditional status update is the one-way latch: only the call
// that changed the row decrements stock, so concurrent or repeated
// settlements take inventory exactly once. Any stock failure is returned and
// rolls back the caller's transaction.
func settle(ctx context.Context, repos TransactionalRepositories, inv *billing.Invoice) (*settlement, error) {
	if err := inv.MarkPaid(); err != nil {
		return nil, err
	}

	changed, err := repos.Invoices().TransitionStatus(ctx, inv.ID, billing.InvoiceStatusPaid, *inv.PaidAt,
		billing.InvoiceStatusDraft, billing.InvoiceStatusSent)
	if err != nil {
		return nil, fmt.Errorf("settle invoice %s: %w", inv.InvoiceNumber, err)
	}
	if !changed {
		inv.ClearDomainEvents()
		return &settlement{Settled: false}, nil
	}

	products, err := takeStock(ctx, repos.Products(), inv.Items)
	if err != nil {
		return nil, err
	}
	return &settlement{Settled: true, Products: products}, nil
}

// reconcileAgainstPayments reconciles the totals of a locked invoice after an
// item change and compares the new total with the payments already recorded.
// A total below the amount paid is rejected so the item change rolls back.
// A total covered exactly by payments settles an open invoice, the same as a
// payment that brings the balance to zero. The returned settlement is nil
// when the invoice was not settled.
func reconcileAgainstPayments(ctx context.Context, repos TransactionalRepositories, reconciler *billing.Reconciler, inv *billing.Invoice) (*settlement, error) {
	totals, err := reconcile(ctx, repos.Invoices(), reconciler, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.ApplyTotals(totals)

	paid, err := repos.Payments().SumByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	if paid.GreaterThan(totals.TotalAmount) {
		return nil, shared.NewInvalidStateError(
			fmt.Sprintf("invoice %s total %s would fall below the %s already paid",
				inv.InvoiceNumber, totals.TotalAmount.StringFixed(2), paid.StringFixed(2)),
			map[string]any{
				"invoice_id":   inv.ID.String(),
				"total_amount": totals.TotalAmount.StringFixed(2),
				"total_paid":   paid.StringFixed(2),
			},
		)
	}
	if !paid.IsPositive() || !paid.Equal(totals.TotalAmount) || inv.Status.IsLocked() {
		return nil, nil
	}

	result, err := settle(ctx, repos, inv)
	if err != nil {
		return nil, err
	}
	if !result.Settled {
		return nil, nil
	}
	return result, nil
}

// publishSettlement publishes the events of a committed settlement: the
// invoice's InvoicePaid and the stock changes of its products
func publishSettlement(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, invoice *billing.Invoice, result *settlement) {
	if result == nil || !result.Settled {
		return
	}

	logger.Info("Invoice paid",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int("products_decreased", len(result.Products)),
	)
	publishEvents(ctx, publisher, logger, invoice)
	for _, product := range result.Products {
		publishEvents(ctx, publisher, logger, product)
	}
}

// takeStock decreases stock once per tracked product, summing quantities of
// repeated lines. Products are processed in ID order so concurrent settlements
// acquire product locks in the same sequence.
func takeStock(ctx context.Context, products catalog.ProductRepository, items []billing.InvoiceItem) ([]*catalog.Product, error) {
	quantities := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		quantities[item.ProductID] += item.Quantity
	}

	ids := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	decreased := make([]*catalog.Product, 0, len(ids))
	for _, id := range ids {
		product, err := products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !product.TrackInventory {
			continue
		}
		updated, err := products.DecreaseStock(ctx, id, quantities[id])
		if err != nil {
			return nil, err
		}
		decreased = append(decreased, updated)
	}
	return decreased, nil
}
