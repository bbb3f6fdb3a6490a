package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_number"`
	CustomerID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	Status        billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	IssuedAt      time.Time             `gorm:"type:date;not null"`
	DueAt         time.Time             `gorm:"type:date;not null;index"`
	Subtotal      decimal.Decimal       `gorm:"type:decimal(12,2);not null;default:0"`
	TaxAmount     decimal.Decimal       `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount   decimal.Decimal       `gorm:"type:decimal(12,2);not null;default:0"`
	Notes         string                `gorm:"type:text"`
	SentAt        *time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	Items         []InvoiceItemModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
// Items are copied in the order they were loaded.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		BaseAggregateRoot: m.ToAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		CustomerID:        m.CustomerID,
		Status:            m.Status,
		IssuedAt:          m.IssuedAt.UTC(),
		DueAt:             m.DueAt.UTC(),
		Subtotal:          m.Subtotal,
		TaxAmount:         m.TaxAmount,
		TotalAmount:       m.TotalAmount,
		Notes:             m.Notes,
		SentAt:            m.SentAt,
		PaidAt:            m.PaidAt,
		CancelledAt:       m.CancelledAt,
		Items:             make([]billing.InvoiceItem, 0, len(m.Items)),
	}
	for i := range m.Items {
		inv.Items = append(inv.Items, *m.Items[i].ToDomain())
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.CustomerID = inv.CustomerID
	m.Status = inv.Status
	m.IssuedAt = inv.IssuedAt
	m.DueAt = inv.DueAt
	m.Subtotal = inv.Subtotal
	m.TaxAmount = inv.TaxAmount
	m.TotalAmount = inv.TotalAmount
	m.Notes = inv.Notes
	m.SentAt = inv.SentAt
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i := range inv.Items {
		m.Items[i].FromDomain(&inv.Items[i])
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is the persistence model for an invoice line item.
type InvoiceItemModel struct {
	BaseModel
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    int             `gorm:"not null;check:quantity > 0"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Position    int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain InvoiceItem.
func (m *InvoiceItemModel) ToDomain() *billing.InvoiceItem {
	return &billing.InvoiceItem{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		ProductID:   m.ProductID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Total:       m.Total,
		Position:    m.Position,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain InvoiceItem.
func (m *InvoiceItemModel) FromDomain(item *billing.InvoiceItem) {
	m.ID = item.ID
	m.CreatedAt = item.CreatedAt
	m.UpdatedAt = item.UpdatedAt
	m.InvoiceID = item.InvoiceID
	m.ProductID = item.ProductID
	m.Description = item.Description
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.Total = item.Total
	m.Position = item.Position
}

// InvoiceItemModelFromDomain creates a new persistence model from a domain InvoiceItem.
func InvoiceItemModelFromDomain(item *billing.InvoiceItem) *InvoiceItemModel {
	m := &InvoiceItemModel{}
	m.FromDomain(item)
	return m
}
