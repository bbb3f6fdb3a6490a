package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest represents a request to open a new DRAFT invoice.
// IssuedAt defaults to today and DueAt to IssuedAt plus the configured term.
type CreateInvoiceRequest struct {
	CustomerID uuid.UUID  `json:"customer_id" binding:"required"`
	IssuedAt   *time.Time `json:"issued_at"`
	DueAt      *time.Time `json:"due_at"`
	Notes      string     `json:"notes" binding:"max=2000"`
}

// AddItemRequest represents a request to add a product to an invoice
type AddItemRequest struct {
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,min=1"`
	Description string    `json:"description" binding:"max=500"`
}

// UpdateItemQuantityRequest represents a request to change an item's quantity
type UpdateItemQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// CloneInvoiceRequest represents a request to duplicate an invoice
type CloneInvoiceRequest struct {
	DueAt *time.Time `json:"due_at"`
}

// UpdateInvoiceRequest represents a request to edit invoice details
type UpdateInvoiceRequest struct {
	DueAt *time.Time `json:"due_at"`
	Notes *string    `json:"notes" binding:"omitempty,max=2000"`
}

// RecordPaymentRequest represents a payment received against an invoice
type RecordPaymentRequest struct {
	Amount        decimal.Decimal       `json:"amount" binding:"required,decimal_gt0"`
	Method        finance.PaymentMethod `json:"method"`
	TransactionID *string               `json:"transaction_id" binding:"omitempty,max=100"`
	PaidAt        *time.Time            `json:"paid_at"`
	Notes         string                `json:"notes" binding:"max=2000"`
}

// InvoiceItemResponse represents an invoice line in API responses
type InvoiceItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	Position    int             `json:"position"`
}

// InvoiceResponse represents an invoice in API responses.
// Status is the effective status, so past-due open invoices read as OVERDUE.
type InvoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	CustomerID    uuid.UUID             `json:"customer_id"`
	Status        string                `json:"status"`
	StoredStatus  string                `json:"stored_status"`
	IssuedAt      string                `json:"issued_at"`
	DueAt         string                `json:"due_at"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	TaxAmount     decimal.Decimal       `json:"tax_amount"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	Notes         string                `json:"notes"`
	SentAt        *time.Time            `json:"sent_at,omitempty"`
	PaidAt        *time.Time            `json:"paid_at,omitempty"`
	CancelledAt   *time.Time            `json:"cancelled_at,omitempty"`
	Items         []InvoiceItemResponse `json:"items"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	Version       int                   `json:"version"`
}

// InvoiceListResponse represents a list item for invoices
type InvoiceListResponse struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Status        string          `json:"status"`
	IssuedAt      string          `json:"issued_at"`
	DueAt         string          `json:"due_at"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	PaidAt        time.Time       `json:"paid_at"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BalanceResponse summarizes what has been paid and what is still owed
type BalanceResponse struct {
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	BalanceDue  decimal.Decimal `json:"balance_due"`
}

// RecordPaymentResponse is returned after a payment is recorded
type RecordPaymentResponse struct {
	Payment       PaymentResponse `json:"payment"`
	Balance       BalanceResponse `json:"balance"`
	InvoiceStatus string          `json:"invoice_status"`
}

const dateLayout = "2006-01-02"

// ToInvoiceResponse converts a domain invoice to a response evaluated at now
func ToInvoiceResponse(inv *billing.Invoice, now time.Time) InvoiceResponse {
	items := make([]InvoiceItemResponse, len(inv.Items))
	for i := range inv.Items {
		items[i] = ToInvoiceItemResponse(&inv.Items[i])
	}
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		Status:        inv.EffectiveStatus(now).String(),
		StoredStatus:  inv.Status.String(),
		IssuedAt:      inv.IssuedAt.Format(dateLayout),
		DueAt:         inv.DueAt.Format(dateLayout),
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		Notes:         inv.Notes,
		SentAt:        inv.SentAt,
		PaidAt:        inv.PaidAt,
		CancelledAt:   inv.CancelledAt,
		Items:         items,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
		Version:       inv.Version,
	}
}

// ToInvoiceItemResponse converts a domain invoice item to a response
func ToInvoiceItemResponse(item *billing.InvoiceItem) InvoiceItemResponse {
	return InvoiceItemResponse{
		ID:          item.ID,
		InvoiceID:   item.InvoiceID,
		ProductID:   item.ProductID,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Total:       item.Total,
		Position:    item.Position,
	}
}

// ToInvoiceListResponses converts invoices to list responses evaluated at now
func ToInvoiceListResponses(invoices []billing.Invoice, now time.Time) []InvoiceListResponse {
	responses := make([]InvoiceListResponse, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		responses[i] = InvoiceListResponse{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			CustomerID:    inv.CustomerID,
			Status:        inv.EffectiveStatus(now).String(),
			IssuedAt:      inv.IssuedAt.Format(dateLayout),
			DueAt:         inv.DueAt.Format(dateLayout),
			TotalAmount:   inv.TotalAmount,
			CreatedAt:     inv.CreatedAt,
		}
	}
	return responses
}

// ToPaymentResponse converts a domain payment to a response
func ToPaymentResponse(p *finance.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		InvoiceID:     p.InvoiceID,
		Amount:        p.Amount,
		Method:        p.Method.String(),
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
	}
}
