package telemetry

import (
	"context"
	"errors"

	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/invoicing/backend/internal/domain/finance"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a nil meter is passed to NewBusinessMetrics
var ErrMeterNil = errors.New("meter cannot be nil")

// BusinessMetrics turns committed domain events into counters. It is
// subscribed to the event bus, so nothing is counted for rolled back work.
type BusinessMetrics struct {
	invoiceEvents *Counter
	payments      *Counter
	paymentAmount *Counter
	revenue       *Counter
	stockSold     *Counter
}

// NewBusinessMetrics creates the invoicing counters on meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	var (
		bm  BusinessMetrics
		err error
	)
	if bm.invoiceEvents, err = NewCounter(meter, "invoicing_invoice_events_total",
		"Invoice lifecycle transitions by event type", "{event}"); err != nil {
		return nil, err
	}
	if bm.payments, err = NewCounter(meter, "invoicing_payments_total",
		"Recorded payments by method", "{payment}"); err != nil {
		return nil, err
	}
	if bm.paymentAmount, err = NewCounter(meter, "invoicing_payment_amount_cents_total",
		"Sum of recorded payments in minor currency units", "{cent}"); err != nil {
		return nil, err
	}
	if bm.revenue, err = NewCounter(meter, "invoicing_paid_revenue_cents_total",
		"Total of invoices that reached PAID in minor currency units", "{cent}"); err != nil {
		return nil, err
	}
	if bm.stockSold, err = NewCounter(meter, "invoicing_stock_sold_units_total",
		"Units removed from stock by settled invoices", "{unit}"); err != nil {
		return nil, err
	}
	return &bm, nil
}

// EventTypes returns the events that feed the counters
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceCreated,
		billing.EventTypeInvoiceSent,
		billing.EventTypeInvoicePaid,
		billing.EventTypeInvoiceCancelled,
		finance.EventTypePaymentRecorded,
		catalog.EventTypeProductStockDecreased,
	}
}

// Handle updates the counters for evt. Unknown events are ignored.
func (bm *BusinessMetrics) Handle(ctx context.Context, evt shared.DomainEvent) error {
	switch e := evt.(type) {
	case *billing.InvoicePaidEvent:
		bm.invoiceEvents.Inc(ctx, AttrEventType.String(e.EventType()))
		bm.revenue.Add(ctx, toCents(e.TotalAmount))
	case *billing.InvoiceCreatedEvent, *billing.InvoiceSentEvent, *billing.InvoiceCancelledEvent:
		bm.invoiceEvents.Inc(ctx, AttrEventType.String(e.EventType()))
	case *finance.PaymentRecordedEvent:
		method := AttrPaymentMethod.String(string(e.Method))
		bm.payments.Inc(ctx, method)
		bm.paymentAmount.Add(ctx, toCents(e.Amount), method)
	case *catalog.ProductStockDecreasedEvent:
		bm.stockSold.Add(ctx, int64(e.Quantity))
	}
	return nil
}

// toCents converts a two-decimal amount to an integer count of cents
func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)
