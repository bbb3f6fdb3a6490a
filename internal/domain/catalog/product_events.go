package catalog

import (
	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated        = "ProductCreated"
	EventTypeProductPriceChanged   = "ProductPriceChanged"
	EventTypeProductStockDecreased = "ProductStockDecreased"
	EventTypeProductDeactivated    = "ProductDeactivated"
)

// ProductCreatedEvent is published when a new product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID      uuid.UUID       `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TrackInventory bool            `json:"track_inventory"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		Name:            product.Name,
		UnitPrice:       product.UnitPrice,
		TrackInventory:  product.TrackInventory,
	}
}

// ProductPriceChangedEvent is published when the catalog price changes
type ProductPriceChangedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	OldPrice  decimal.Decimal `json:"old_price"`
	NewPrice  decimal.Decimal `json:"new_price"`
}

// NewProductPriceChangedEvent creates a new ProductPriceChangedEvent
func NewProductPriceChangedEvent(product *Product, oldPrice decimal.Decimal) *ProductPriceChangedEvent {
	return &ProductPriceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductPriceChanged, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		OldPrice:        oldPrice,
		NewPrice:        product.UnitPrice,
	}
}

// ProductStockDecreasedEvent is published when paid invoices consume stock
type ProductStockDecreasedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Remaining int       `json:"remaining"`
}

// NewProductStockDecreasedEvent creates a new ProductStockDecreasedEvent
func NewProductStockDecreasedEvent(product *Product, quantity int) *ProductStockDecreasedEvent {
	return &ProductStockDecreasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductStockDecreased, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		Quantity:        quantity,
		Remaining:       product.Stock(),
	}
}

// ProductDeactivatedEvent is published when a product is soft-deleted
type ProductDeactivatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
}

// NewProductDeactivatedEvent creates a new ProductDeactivatedEvent
func NewProductDeactivatedEvent(product *Product) *ProductDeactivatedEvent {
	return &ProductDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductDeactivated, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
	}
}
