package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceItem represents a line item of an invoice.
// UnitPrice is a snapshot of the catalog price taken when the item was added.
type InvoiceItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	ProductID   uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal // Quantity * UnitPrice
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewInvoiceItem creates a new invoice item
func NewInvoiceItem(invoiceID, productID uuid.UUID, description string, quantity int, unitPrice decimal.Decimal) (*InvoiceItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if len(description) > 500 {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
	}

	now := time.Now()
	item := &InvoiceItem{
		ID:          uuid.New(),
		InvoiceID:   invoiceID,
		ProductID:   productID,
		Description: strings.TrimSpace(description),
		Quantity:    quantity,
		UnitPrice:   shared.RoundMoney(unitPrice),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item.computeTotal()

	return item, nil
}

// UpdateQuantity updates the item quantity and its total
func (i *InvoiceItem) UpdateQuantity(quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	i.Quantity = quantity
	i.computeTotal()
	i.UpdatedAt = time.Now()
	return nil
}

func (i *InvoiceItem) computeTotal() {
	i.Total = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be at least 1")
	}
	return nil
}

// Invoice is the aggregate root of the billing context.
// Subtotal, TaxAmount and TotalAmount are derived from Items by the Reconciler
// and never edited directly.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string
	CustomerID    uuid.UUID
	Status        InvoiceStatus
	IssuedAt      time.Time
	DueAt         time.Time
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
	Notes         string
	SentAt        *time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	Items         []InvoiceItem
}

// NewInvoice creates a new DRAFT invoice with zero totals and no items
func NewInvoice(invoiceNumber string, customerID uuid.UUID, issuedAt, dueAt time.Time) (*Invoice, error) {
	if strings.TrimSpace(invoiceNumber) == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	issuedAt = truncateDay(issuedAt)
	dueAt = truncateDay(dueAt)
	if dueAt.Before(issuedAt) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Due date cannot be before the issue date")
	}

	invoice := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		CustomerID:        customerID,
		Status:            InvoiceStatusDraft,
		IssuedAt:          issuedAt,
		DueAt:             dueAt,
		Subtotal:          decimal.Zero,
		TaxAmount:         decimal.Zero,
		TotalAmount:       decimal.Zero,
		Items:             make([]InvoiceItem, 0),
	}

	invoice.AddDomainEvent(NewInvoiceCreatedEvent(invoice))

	return invoice, nil
}

// CanModify returns true if the invoice or its items may still change
func (inv *Invoice) CanModify() bool {
	return !inv.Status.IsLocked()
}

// EnsureModifiable returns an InvalidStateError for PAID or CANCELLED invoices
func (inv *Invoice) EnsureModifiable() error {
	if inv.CanModify() {
		return nil
	}
	return shared.NewInvalidStateError(
		fmt.Sprintf("invoice %s is %s and can no longer be modified", inv.InvoiceNumber, inv.Status),
		map[string]any{"invoice_id": inv.ID.String(), "status": inv.Status.String()},
	)
}

// AddItem appends a line item with the given snapshot price.
// Totals are recomputed by the Reconciler after the item is persisted.
func (inv *Invoice) AddItem(productID uuid.UUID, description string, quantity int, unitPrice decimal.Decimal) (*InvoiceItem, error) {
	if err := inv.EnsureModifiable(); err != nil {
		return nil, err
	}

	item, err := NewInvoiceItem(inv.ID, productID, description, quantity, unitPrice)
	if err != nil {
		return nil, err
	}
	item.Position = inv.nextPosition()

	inv.Items = append(inv.Items, *item)
	inv.Touch()

	return item, nil
}

// UpdateItemQuantity changes the quantity of an existing item
func (inv *Invoice) UpdateItemQuantity(itemID uuid.UUID, quantity int) (*InvoiceItem, error) {
	if err := inv.EnsureModifiable(); err != nil {
		return nil, err
	}

	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			if err := inv.Items[idx].UpdateQuantity(quantity); err != nil {
				return nil, err
			}
			inv.Touch()
			item := inv.Items[idx]
			return &item, nil
		}
	}

	return nil, shared.NewNotFoundError("invoice item", itemID)
}

// RemoveItem removes an item from the invoice
func (inv *Invoice) RemoveItem(itemID uuid.UUID) error {
	if err := inv.EnsureModifiable(); err != nil {
		return err
	}

	for idx, item := range inv.Items {
		if item.ID == itemID {
			inv.Items = append(inv.Items[:idx], inv.Items[idx+1:]...)
			inv.Touch()
			return nil
		}
	}

	return shared.NewNotFoundError("invoice item", itemID)
}

// UpdateDetails changes the due date and notes
func (inv *Invoice) UpdateDetails(dueAt time.Time, notes string) error {
	if err := inv.EnsureModifiable(); err != nil {
		return err
	}
	dueAt = truncateDay(dueAt)
	if dueAt.Before(inv.IssuedAt) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Due date cannot be before the issue date")
	}
	if len(notes) > 2000 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Notes cannot exceed 2000 characters")
	}

	inv.DueAt = dueAt
	inv.Notes = notes
	inv.Touch()
	inv.IncrementVersion()

	return nil
}

// MarkSent records that the invoice was sent to the customer (DRAFT to SENT)
func (inv *Invoice) MarkSent() error {
	if inv.Status != InvoiceStatusDraft {
		return inv.transitionError(InvoiceStatusSent)
	}

	now := time.Now()
	inv.Status = InvoiceStatusSent
	inv.SentAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceSentEvent(inv))

	return nil
}

// MarkPaid moves the invoice into PAID. It fails for invoices that are
// already paid or cancelled, which makes the transition a one-way latch.
func (inv *Invoice) MarkPaid() error {
	if inv.Status == InvoiceStatusPaid {
		return shared.NewInvalidStateError(
			fmt.Sprintf("invoice %s is already paid", inv.InvoiceNumber),
			map[string]any{"invoice_id": inv.ID.String(), "status": inv.Status.String()},
		)
	}
	if !inv.Status.CanTransitionTo(InvoiceStatusPaid) {
		return inv.transitionError(InvoiceStatusPaid)
	}

	now := time.Now()
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoicePaidEvent(inv))

	return nil
}

// Cancel moves the invoice into the terminal CANCELLED status
func (inv *Invoice) Cancel() error {
	if !inv.Status.CanTransitionTo(InvoiceStatusCancelled) {
		return inv.transitionError(InvoiceStatusCancelled)
	}

	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))

	return nil
}

// ApplyTotals overwrites the three derived monetary fields. It is only
// called by reconciliation and is allowed on locked invoices.
func (inv *Invoice) ApplyTotals(t Totals) {
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.TotalAmount = t.TotalAmount
}

// Clone creates a new DRAFT invoice for the same customer. Items keep their
// description and snapshot price; totals are copied from the source and are
// reconciled again once the clone is persisted.
func (inv *Invoice) Clone(invoiceNumber string, issuedAt, dueAt time.Time) (*Invoice, error) {
	clone, err := NewInvoice(invoiceNumber, inv.CustomerID, issuedAt, dueAt)
	if err != nil {
		return nil, err
	}
	clone.Notes = inv.Notes

	for _, src := range inv.Items {
		item, err := NewInvoiceItem(clone.ID, src.ProductID, src.Description, src.Quantity, src.UnitPrice)
		if err != nil {
			return nil, err
		}
		item.Position = src.Position
		clone.Items = append(clone.Items, *item)
	}
	clone.ApplyTotals(Totals{Subtotal: inv.Subtotal, TaxAmount: inv.TaxAmount, TotalAmount: inv.TotalAmount})

	return clone, nil
}

// IsOverdue reports whether the due date has passed without payment
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if inv.Status == InvoiceStatusPaid || inv.Status == InvoiceStatusCancelled {
		return false
	}
	return inv.DueAt.Before(truncateDay(now))
}

// EffectiveStatus returns the stored status, or OVERDUE when the invoice is past due
func (inv *Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if inv.IsOverdue(now) {
		return InvoiceStatusOverdue
	}
	return inv.Status
}

// BalanceDue returns the amount still owed given the total already paid
func (inv *Invoice) BalanceDue(totalPaid decimal.Decimal) decimal.Decimal {
	balance := inv.TotalAmount.Sub(totalPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// GetItem returns the item with the given ID or nil
func (inv *Invoice) GetItem(itemID uuid.UUID) *InvoiceItem {
	for idx := range inv.Items {
		if inv.Items[idx].ID == itemID {
			return &inv.Items[idx]
		}
	}
	return nil
}

// ItemCount returns the number of items
func (inv *Invoice) ItemCount() int {
	return len(inv.Items)
}

func (inv *Invoice) nextPosition() int {
	next := 1
	for _, item := range inv.Items {
		if item.Position >= next {
			next = item.Position + 1
		}
	}
	return next
}

func (inv *Invoice) transitionError(target InvoiceStatus) error {
	return shared.NewInvalidStateError(
		fmt.Sprintf("cannot move invoice %s from %s to %s", inv.InvoiceNumber, inv.Status, target),
		map[string]any{"invoice_id": inv.ID.String(), "status": inv.Status.String(), "target": target.String()},
	)
}

// truncateDay keeps the calendar date of t and drops the time of day
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
