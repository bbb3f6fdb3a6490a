package catalog

import (
	"strings"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// IsValid checks if the status is a known value
func (s ProductStatus) IsValid() bool {
	return s == ProductStatusActive || s == ProductStatusInactive
}

// Product represents a product or service that can be invoiced.
// It is the aggregate root for catalog operations.
//
// StockQuantity is set if and only if TrackInventory is true.
type Product struct {
	shared.BaseAggregateRoot
	Name           string
	Description    string
	UnitPrice      decimal.Decimal
	TrackInventory bool
	StockQuantity  *int
	Status         ProductStatus
}

// NewProduct creates a product. stock must be nil for untracked products and
// non-nil for tracked ones.
func NewProduct(name, description string, unitPrice decimal.Decimal, trackInventory bool, stock *int) (*Product, error) {
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validateUnitPrice(unitPrice); err != nil {
		return nil, err
	}
	if err := validateInventory(trackInventory, stock); err != nil {
		return nil, err
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Description:       description,
		UnitPrice:         shared.RoundMoney(unitPrice),
		TrackInventory:    trackInventory,
		StockQuantity:     copyInt(stock),
		Status:            ProductStatusActive,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update changes the descriptive fields of the product
func (p *Product) Update(name, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(name)
	p.Description = description
	p.Touch()
	p.IncrementVersion()

	return nil
}

// ChangePrice sets a new unit price. Invoice items already holding a
// snapshot of the old price are not affected.
func (p *Product) ChangePrice(price decimal.Decimal) error {
	if err := validateUnitPrice(price); err != nil {
		return err
	}

	old := p.UnitPrice
	p.UnitPrice = shared.RoundMoney(price)
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductPriceChangedEvent(p, old))

	return nil
}

// AdjustStock overwrites the stock level of a tracked product
func (p *Product) AdjustStock(quantity int) error {
	if !p.TrackInventory {
		return shared.NewInvalidStateError("product does not track inventory",
			map[string]any{"product_id": p.ID.String()})
	}
	if quantity < 0 {
		return shared.NewInvalidInputError("stock quantity cannot be negative")
	}

	p.StockQuantity = &quantity
	p.Touch()
	p.IncrementVersion()

	return nil
}

// CheckAvailability verifies that quantity units can be taken from stock.
// Untracked products are always available.
func (p *Product) CheckAvailability(quantity int) error {
	if !p.TrackInventory {
		return nil
	}
	available := p.Stock()
	if available < quantity {
		return shared.NewInsufficientStockError(p.ID, available, quantity)
	}
	return nil
}

// DecreaseStock takes quantity units out of stock in memory. Persistence
// performs the same check again with an atomic guarded update.
func (p *Product) DecreaseStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewInvalidInputError("quantity must be positive")
	}
	if !p.TrackInventory {
		return shared.NewInvalidStateError("product does not track inventory",
			map[string]any{"product_id": p.ID.String()})
	}
	if err := p.CheckAvailability(quantity); err != nil {
		return err
	}

	remaining := p.Stock() - quantity
	p.StockQuantity = &remaining
	p.Touch()

	p.AddDomainEvent(NewProductStockDecreasedEvent(p, quantity))

	return nil
}

// Deactivate soft-deletes the product. Historical invoice items keep
// referencing it.
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewInvalidStateError("product is already inactive",
			map[string]any{"product_id": p.ID.String()})
	}

	p.Status = ProductStatusInactive
	p.Touch()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductDeactivatedEvent(p))

	return nil
}

// Activate restores an inactive product
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewInvalidStateError("product is already active",
			map[string]any{"product_id": p.ID.String()})
	}

	p.Status = ProductStatusActive
	p.Touch()
	p.IncrementVersion()

	return nil
}

// IsActive returns true if the product can be added to invoices
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// Stock returns the current stock level, zero for untracked products
func (p *Product) Stock() int {
	if p.StockQuantity == nil {
		return 0
	}
	return *p.StockQuantity
}

// InvoiceDescription returns the text copied onto invoice items
func (p *Product) InvoiceDescription() string {
	if strings.TrimSpace(p.Description) != "" {
		return p.Description
	}
	return p.Name
}

func validateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validateUnitPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return nil
}

func validateInventory(track bool, stock *int) error {
	if track && stock == nil {
		return shared.NewDomainError("INVALID_STOCK", "Stock quantity is required when inventory is tracked")
	}
	if !track && stock != nil {
		return shared.NewDomainError("INVALID_STOCK", "Stock quantity must be empty when inventory is not tracked")
	}
	if stock != nil && *stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock quantity cannot be negative")
	}
	return nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
