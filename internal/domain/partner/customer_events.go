package partner

import (
	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCustomer = "Customer"

// Event type constants
const (
	EventTypeCustomerCreated     = "CustomerCreated"
	EventTypeCustomerDeactivated = "CustomerDeactivated"
)

// CustomerCreatedEvent is published when a new customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(customer *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Name:            customer.Name,
		Email:           customer.Email,
	}
}

// CustomerDeactivatedEvent is published when a customer is soft-deleted
type CustomerDeactivatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
}

// NewCustomerDeactivatedEvent creates a new CustomerDeactivatedEvent
func NewCustomerDeactivatedEvent(customer *Customer) *CustomerDeactivatedEvent {
	return &CustomerDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerDeactivated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
	}
}
