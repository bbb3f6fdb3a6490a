package billing

import (
	"fmt"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the flat tax rate applied when none is configured
var DefaultTaxRate = decimal.RequireFromString("0.10")

// Totals holds the three derived monetary fields of an invoice
type Totals struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// Equal reports whether two totals hold the same amounts
func (t Totals) Equal(other Totals) bool {
	return t.Subtotal.Equal(other.Subtotal) &&
		t.TaxAmount.Equal(other.TaxAmount) &&
		t.TotalAmount.Equal(other.TotalAmount)
}

// Reconciler recomputes invoice totals from line items with a flat tax rate.
// It is deterministic and holds no state besides the rate.
type Reconciler struct {
	taxRate decimal.Decimal
}

// NewReconciler creates a reconciler. The rate must be in [0, 1).
func NewReconciler(taxRate decimal.Decimal) (*Reconciler, error) {
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate must be in [0, 1), got %s", taxRate)
	}
	return &Reconciler{taxRate: taxRate}, nil
}

// TaxRate returns the configured rate
func (r *Reconciler) TaxRate() decimal.Decimal {
	return r.taxRate
}

// FromSubtotal derives tax and total from an item subtotal.
// tax = round(subtotal * rate, 2), total = subtotal + tax.
func (r *Reconciler) FromSubtotal(subtotal decimal.Decimal) Totals {
	subtotal = shared.RoundMoney(subtotal)
	tax := shared.RoundMoney(subtotal.Mul(r.taxRate))
	return Totals{
		Subtotal:    subtotal,
		TaxAmount:   tax,
		TotalAmount: subtotal.Add(tax),
	}
}

// Compute sums item totals and derives tax and total
func (r *Reconciler) Compute(items []InvoiceItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total)
	}
	return r.FromSubtotal(subtotal)
}

// Apply recomputes and stores the totals of an invoice in memory
func (r *Reconciler) Apply(inv *Invoice) Totals {
	totals := r.Compute(inv.Items)
	inv.ApplyTotals(totals)
	return totals
}
