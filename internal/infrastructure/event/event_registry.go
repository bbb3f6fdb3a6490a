package event

import (
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/invoicing/backend/internal/domain/finance"
	"github.com/invoicing/backend/internal/domain/partner"
)

// RegisterAllEvents registers every domain event published by the services
func RegisterAllEvents(serializer *EventSerializer) {
	// Catalog
	serializer.Register(catalog.EventTypeProductCreated, &catalog.ProductCreatedEvent{})
	serializer.Register(catalog.EventTypeProductPriceChanged, &catalog.ProductPriceChangedEvent{})
	serializer.Register(catalog.EventTypeProductStockDecreased, &catalog.ProductStockDecreasedEvent{})
	serializer.Register(catalog.EventTypeProductDeactivated, &catalog.ProductDeactivatedEvent{})

	// Partner
	serializer.Register(partner.EventTypeCustomerCreated, &partner.CustomerCreatedEvent{})
	serializer.Register(partner.EventTypeCustomerDeactivated, &partner.CustomerDeactivatedEvent{})

	// Billing
	serializer.Register(billing.EventTypeInvoiceCreated, &billing.InvoiceCreatedEvent{})
	serializer.Register(billing.EventTypeInvoiceSent, &billing.InvoiceSentEvent{})
	serializer.Register(billing.EventTypeInvoicePaid, &billing.InvoicePaidEvent{})
	serializer.Register(billing.EventTypeInvoiceCancelled, &billing.InvoiceCancelledEvent{})

	// Finance
	serializer.Register(finance.EventTypePaymentRecorded, &finance.PaymentRecordedEvent{})
}
