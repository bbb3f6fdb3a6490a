package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Error codes shared by every bounded context
const (
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidState      = "INVALID_STATE"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeOverpayment       = "OVERPAYMENT"
	CodeConcurrency       = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error.
// Details carries the structured context (entity id, attempted value, limit)
// callers need to render a message.
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrNotFound) matches every not-found error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error with an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrency, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrOverpayment         = NewDomainError(CodeOverpayment, "Payment exceeds the outstanding balance")
)

// NewNotFoundError reports a missing or inactive entity
func NewNotFoundError(entity string, id uuid.UUID) *DomainError {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
		Details: map[string]any{"entity": entity, "id": id.String()},
	}
}

// NewInvalidStateError reports an operation disallowed in the current status
func NewInvalidStateError(message string, details map[string]any) *DomainError {
	return &DomainError{
		Code:    CodeInvalidState,
		Message: message,
		Details: details,
	}
}

// NewInsufficientStockError reports a stock level below the requested quantity
func NewInsufficientStockError(productID uuid.UUID, available, requested int) *DomainError {
	return &DomainError{
		Code: CodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
			productID, available, requested),
		Details: map[string]any{
			"product_id": productID.String(),
			"available":  available,
			"requested":  requested,
		},
	}
}

// NewOverpaymentError reports a payment that would push the paid total over the invoice total
func NewOverpaymentError(invoiceID uuid.UUID, attemptedTotal, allowedBalance decimal.Decimal) *DomainError {
	return &DomainError{
		Code: CodeOverpayment,
		Message: fmt.Sprintf("payment would bring the total paid to %s, the remaining balance is %s",
			attemptedTotal.StringFixed(2), allowedBalance.StringFixed(2)),
		Details: map[string]any{
			"invoice_id":      invoiceID.String(),
			"attempted_total": attemptedTotal.StringFixed(2),
			"allowed_balance": allowedBalance.StringFixed(2),
		},
	}
}

// NewInvalidInputError reports a rejected argument
func NewInvalidInputError(message string) *DomainError {
	return NewDomainError(CodeInvalidInput, message)
}
