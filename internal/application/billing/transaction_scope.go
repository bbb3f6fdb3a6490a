package billing

import (
	"context"

	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/invoicing/backend/internal/domain/finance"
	"github.com/invoicing/backend/internal/domain/partner"
)

// TransactionScope provides transactional access to the invoicing repositories.
// All repository operations performed inside Execute are committed or rolled
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories within a transaction.
// All repositories returned share the same underlying database transaction, so
// a row lock taken through Invoices() is held while Products() decrements stock.
type TransactionalRepositories interface {
	Invoices() billing.InvoiceRepository
	Payments() finance.PaymentRepository
	Products() catalog.ProductRepository
	Customers() partner.CustomerRepository
}

// NoOpTransactionScope runs functions directly against the given repositories.
// It is used in tests and wherever transactional guarantees are provided elsewhere.
type NoOpTransactionScope struct {
	invoices  billing.InvoiceRepository
	payments  finance.PaymentRepository
	products  catalog.ProductRepository
	customers partner.CustomerRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoices billing.InvoiceRepository,
	payments finance.PaymentRepository,
	products catalog.ProductRepository,
	customers partner.CustomerRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoices:  invoices,
		payments:  payments,
		products:  products,
		customers: customers,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Invoices returns the invoice repository.
func (s *NoOpTransactionScope) Invoices() billing.InvoiceRepository { return s.invoices }

// Payments returns the payment repository.
func (s *NoOpTransactionScope) Payments() finance.PaymentRepository { return s.payments }

// Products returns the product repository.
func (s *NoOpTransactionScope) Products() catalog.ProductRepository { return s.products }

// Customers returns the customer repository.
func (s *NoOpTransactionScope) Customers() partner.CustomerRepository { return s.customers }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
