package document

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// ContentTypePDF is the content type of rendered invoice documents
const ContentTypePDF = "application/pdf"

// ContentTypeHTML is used when documents are rendered without a browser
const ContentTypeHTML = "text/html; charset=utf-8"

// InvoiceDocument is the read model handed to a Renderer
type InvoiceDocument struct {
	CompanyName   string
	InvoiceID     uuid.UUID
	InvoiceNumber string
	Status        string
	IssuedAt      time.Time
	DueAt         time.Time
	Notes         string
	Customer      Party
	Lines         []Line
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
	AmountPaid    decimal.Decimal
	BalanceDue    decimal.Decimal
	GeneratedAt   time.Time
}

// Party is the billed customer as printed on the document
type Party struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Line is one printed invoice line
type Line struct {
	Position    int
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// NewInvoiceDocument builds the printable view of an invoice
func NewInvoiceDocument(company string, inv *billing.Invoice, customer *partner.Customer, paid decimal.Decimal, now time.Time) *InvoiceDocument {
	lines := make([]Line, len(inv.Items))
	for i, item := range inv.Items {
		lines[i] = Line{
			Position:    i + 1,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		}
	}

	doc := &InvoiceDocument{
		CompanyName:   company,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.EffectiveStatus(now).String(),
		IssuedAt:      inv.IssuedAt,
		DueAt:         inv.DueAt,
		Notes:         inv.Notes,
		Lines:         lines,
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		AmountPaid:    paid,
		BalanceDue:    inv.BalanceDue(paid),
		GeneratedAt:   now,
	}
	if customer != nil {
		doc.Customer = Party{
			Name:    customer.Name,
			Email:   customer.Email,
			Phone:   customer.Phone,
			Address: customer.Address,
		}
	}
	return doc
}

// FileName returns the download name of the rendered document
func (d *InvoiceDocument) FileName(ext string) string {
	return fmt.Sprintf("invoice-%s.%s", d.InvoiceNumber, ext)
}

// ArchiveKey returns the key the document is archived under, relative to
// the archive root
func (d *InvoiceDocument) ArchiveKey(ext string) string {
	return fmt.Sprintf("%04d/%s/%s", d.IssuedAt.Year(), d.InvoiceID, d.FileName(ext))
}
