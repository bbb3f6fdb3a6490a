package partner

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CustomerService handles customer-related business operations
type CustomerService struct {
	customerRepo   partner.CustomerRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{
		customerRepo: customerRepo,
		logger:       logger.Named("customer_service"),
	}
}

// SetEventPublisher sets the event publisher for customer events
func (s *CustomerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new customer. E-mail addresses are unique across all
// customers, inactive ones included.
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	customer, err := partner.NewCustomer(req.Name, req.Email)
	if err != nil {
		return nil, err
	}
	if req.Phone != "" || req.Address != "" {
		if err := customer.SetContact(req.Phone, req.Address); err != nil {
			return nil, err
		}
	}

	exists, err := s.customerRepo.ExistsByEmail(ctx, customer.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrAlreadyExists.WithDetail("email", customer.Email)
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	s.logger.Info("Customer created", zap.String("customer_id", customer.ID.String()))
	s.publish(ctx, customer)

	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByID returns a customer regardless of status
func (s *CustomerService) GetByID(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetActiveCustomer returns an active customer. Inactive customers are
// reported as not found.
func (s *CustomerService) GetActiveCustomer(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindActiveByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// List returns a page of customers
func (s *CustomerService) List(ctx context.Context, filter CustomerListFilter) ([]CustomerResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]any),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}

	customers, total, err := s.customerRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToCustomerResponses(customers), total, nil
}

// Update changes a customer's name, e-mail or contact details
func (s *CustomerService) Update(ctx context.Context, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Email != nil {
		name := customer.Name
		if req.Name != nil {
			name = *req.Name
		}
		email := customer.Email
		if req.Email != nil {
			email = *req.Email
		}
		previous := customer.Email
		if err := customer.Update(name, email); err != nil {
			return nil, err
		}
		if !strings.EqualFold(previous, customer.Email) {
			exists, err := s.customerRepo.ExistsByEmail(ctx, customer.Email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, shared.ErrAlreadyExists.WithDetail("email", customer.Email)
			}
		}
	}
	if req.Phone != nil || req.Address != nil {
		phone := customer.Phone
		if req.Phone != nil {
			phone = *req.Phone
		}
		address := customer.Address
		if req.Address != nil {
			address = *req.Address
		}
		if err := customer.SetContact(phone, address); err != nil {
			return nil, err
		}
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	response := ToCustomerResponse(customer)
	return &response, nil
}

// Deactivate soft-deletes a customer. Existing invoices are untouched but
// no new invoice can be issued to the customer.
func (s *CustomerService) Deactivate(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := customer.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	s.logger.Info("Customer deactivated", zap.String("customer_id", customer.ID.String()))
	s.publish(ctx, customer)

	response := ToCustomerResponse(customer)
	return &response, nil
}

// Activate restores an inactive customer
func (s *CustomerService) Activate(ctx context.Context, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := customer.Activate(); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	response := ToCustomerResponse(customer)
	return &response, nil
}

func (s *CustomerService) publish(ctx context.Context, customer *partner.Customer) {
	events := customer.GetDomainEvents()
	customer.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish customer events",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err),
		)
	}
}
