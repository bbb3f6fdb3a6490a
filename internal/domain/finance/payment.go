package finance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodMobilePayment PaymentMethod = "mobile_payment"
	PaymentMethodOther         PaymentMethod = "other"
)

// DefaultPaymentMethod is used when no method is given
const DefaultPaymentMethod = PaymentMethodBankTransfer

// IsValid checks if the method is a known value
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodMobilePayment, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment is an amount received against one invoice.
// Payments are append-only; they are never edited after recording.
type Payment struct {
	shared.BaseAggregateRoot
	InvoiceID     uuid.UUID
	Amount        decimal.Decimal
	Method        PaymentMethod
	TransactionID *string
	PaidAt        time.Time
	Notes         string
}

// NewPayment creates a payment. A zero paidAt defaults to now and an empty
// method defaults to bank transfer.
func NewPayment(invoiceID uuid.UUID, amount decimal.Decimal, method PaymentMethod, transactionID *string, paidAt time.Time, notes string) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invoice ID cannot be empty")
	}
	amount = shared.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Payment amount must be positive")
	}
	if method == "" {
		method = DefaultPaymentMethod
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown payment method: "+string(method))
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	payment := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         invoiceID,
		Amount:            amount,
		Method:            method,
		TransactionID:     normalizeTransactionID(transactionID),
		PaidAt:            paidAt,
		Notes:             notes,
	}

	payment.AddDomainEvent(NewPaymentRecordedEvent(payment))

	return payment, nil
}

// EnsureWithinBalance rejects a payment that would bring the total paid for
// an invoice above its total amount.
func EnsureWithinBalance(invoiceID uuid.UUID, invoiceTotal, alreadyPaid, amount decimal.Decimal) error {
	attempted := alreadyPaid.Add(amount)
	if attempted.GreaterThan(invoiceTotal) {
		allowed := invoiceTotal.Sub(alreadyPaid)
		if allowed.IsNegative() {
			allowed = decimal.Zero
		}
		return shared.NewOverpaymentError(invoiceID, attempted, allowed)
	}
	return nil
}

// Balance returns total minus paid, floored at zero
func Balance(invoiceTotal, totalPaid decimal.Decimal) decimal.Decimal {
	balance := invoiceTotal.Sub(totalPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

func normalizeTransactionID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
