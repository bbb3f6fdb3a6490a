package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment domain entity.
type PaymentModel struct {
	AggregateModel
	InvoiceID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	Method        finance.PaymentMethod `gorm:"type:varchar(30);not null;default:'bank_transfer'"`
	TransactionID *string               `gorm:"type:varchar(100);uniqueIndex:idx_payments_transaction_id"`
	PaidAt        time.Time             `gorm:"not null"`
	Notes         string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *finance.Payment {
	return &finance.Payment{
		BaseAggregateRoot: m.ToAggregateRoot(),
		InvoiceID:         m.InvoiceID,
		Amount:            m.Amount,
		Method:            m.Method,
		TransactionID:     m.TransactionID,
		PaidAt:            m.PaidAt,
		Notes:             m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *finance.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.Method = p.Method
	m.TransactionID = p.TransactionID
	m.PaidAt = p.PaidAt
	m.Notes = p.Notes
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
