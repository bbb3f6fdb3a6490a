package models

import (
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
// StockQuantity is NULL for products that do not track inventory.
type ProductModel struct {
	AggregateModel
	Name           string                `gorm:"type:varchar(200);not null"`
	Description    string                `gorm:"type:text"`
	UnitPrice      decimal.Decimal       `gorm:"type:decimal(12,2);not null;default:0"`
	TrackInventory bool                  `gorm:"not null;default:false"`
	StockQuantity  *int                  `gorm:"check:stock_quantity IS NULL OR stock_quantity >= 0"`
	Status         catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active';index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Description:       m.Description,
		UnitPrice:         m.UnitPrice,
		TrackInventory:    m.TrackInventory,
		StockQuantity:     m.StockQuantity,
		Status:            m.Status,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Description = p.Description
	m.UnitPrice = p.UnitPrice
	m.TrackInventory = p.TrackInventory
	m.StockQuantity = p.StockQuantity
	m.Status = p.Status
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
