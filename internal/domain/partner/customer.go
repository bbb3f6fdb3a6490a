package partner

import (
	"regexp"
	"strings"

	"github.com/invoicing/backend/internal/domain/shared"
)

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Customer represents a billable customer.
// It is the aggregate root for customer-related operations. Customers are
// never physically deleted; Deactivate is the only removal.
type Customer struct {
	shared.BaseAggregateRoot
	Name    string
	Email   string
	Phone   string
	Address string
	Status  CustomerStatus
}

// NewCustomer creates a new active customer
func NewCustomer(name, email string) (*Customer, error) {
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	customer := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Email:             normalized,
		Status:            CustomerStatusActive,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// Update changes the customer's identity fields
func (c *Customer) Update(name, email string) error {
	if err := validateCustomerName(name); err != nil {
		return err
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	c.Name = strings.TrimSpace(name)
	c.Email = normalized
	c.Touch()
	c.IncrementVersion()

	return nil
}

// SetContact sets phone and postal address
func (c *Customer) SetContact(phone, address string) error {
	if len(phone) > 30 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 30 characters")
	}

	c.Phone = strings.TrimSpace(phone)
	c.Address = strings.TrimSpace(address)
	c.Touch()
	c.IncrementVersion()

	return nil
}

// Deactivate soft-deletes the customer. Existing invoices keep their reference.
func (c *Customer) Deactivate() error {
	if c.Status == CustomerStatusInactive {
		return shared.NewInvalidStateError("customer is already inactive",
			map[string]any{"customer_id": c.ID.String()})
	}

	c.Status = CustomerStatusInactive
	c.Touch()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerDeactivatedEvent(c))

	return nil
}

// Activate restores an inactive customer
func (c *Customer) Activate() error {
	if c.Status == CustomerStatusActive {
		return shared.NewInvalidStateError("customer is already active",
			map[string]any{"customer_id": c.ID.String()})
	}

	c.Status = CustomerStatusActive
	c.Touch()
	c.IncrementVersion()

	return nil
}

// IsActive returns true if new invoices may be issued to the customer
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

func validateCustomerName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 200 characters")
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return email, nil
}
