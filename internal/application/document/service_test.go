package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/finance"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// The repository mocks embed the interface so that only the methods the
// document service calls need an implementation.

type MockInvoiceRepository struct {
	mock.Mock
	billing.InvoiceRepository
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

type MockCustomerRepository struct {
	mock.Mock
	partner.CustomerRepository
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
	finance.PaymentRepository
}

func (m *MockPaymentRepository) SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, doc *InvoiceDocument) (*RenderedDocument, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RenderedDocument), args.Error(1)
}

type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, msg *Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Store(ctx context.Context, key string, doc *RenderedDocument) (string, error) {
	args := m.Called(ctx, key, doc)
	return args.String(0), args.Error(1)
}

type testDeps struct {
	invoices  *MockInvoiceRepository
	customers *MockCustomerRepository
	payments  *MockPaymentRepository
	renderer  *MockRenderer
	deliverer *MockDeliverer
}

func newTestService(logger *zap.Logger) (*Service, *testDeps) {
	d := &testDeps{
		invoices:  new(MockInvoiceRepository),
		customers: new(MockCustomerRepository),
		payments:  new(MockPaymentRepository),
		renderer:  new(MockRenderer),
		deliverer: new(MockDeliverer),
	}
	svc := NewService(d.invoices, d.customers, d.payments, d.renderer, d.deliverer,
		ServiceConfig{CompanyName: "Tiny Shop"}, logger)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc, d
}

func newSentInvoice(t *testing.T, customerID uuid.UUID) *billing.Invoice {
	t.Helper()
	issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv, err := billing.NewInvoice("INV-202603-0001", customerID, issued, issued.AddDate(0, 0, 30))
	require.NoError(t, err)
	_, err = inv.AddItem(uuid.New(), "Consulting", 2, decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	reconciler, err := billing.NewReconciler(decimal.RequireFromString("0.10"))
	require.NoError(t, err)
	reconciler.Apply(inv)
	require.NoError(t, inv.MarkSent())
	inv.ClearDomainEvents()
	return inv
}

func newCustomer(t *testing.T) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer("Acme Corp", "billing@acme.test")
	require.NoError(t, err)
	c.ClearDomainEvents()
	return c
}

var pdf = &RenderedDocument{Content: []byte("%PDF-1.7"), ContentType: ContentTypePDF, Extension: "pdf"}

func TestNewInvoiceDocument(t *testing.T) {
	customer := newCustomer(t)
	inv := newSentInvoice(t, customer.ID)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	doc := NewInvoiceDocument("Tiny Shop", inv, customer, decimal.RequireFromString("30.00"), now)

	assert.Equal(t, "Tiny Shop", doc.CompanyName)
	assert.Equal(t, "Acme Corp", doc.Customer.Name)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, 1, doc.Lines[0].Position)
	assert.True(t, doc.Subtotal.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, doc.TaxAmount.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, doc.TotalAmount.Equal(decimal.RequireFromString("110.00")))
	assert.True(t, doc.BalanceDue.Equal(decimal.RequireFromString("80.00")))
	assert.Equal(t, "SENT", doc.Status)

	assert.Equal(t, "invoice-INV-202603-0001.pdf", doc.FileName("pdf"))
	assert.Equal(t, "2026/"+inv.ID.String()+"/invoice-INV-202603-0001.pdf", doc.ArchiveKey("pdf"))

	t.Run("derives overdue status", func(t *testing.T) {
		late := NewInvoiceDocument("Tiny Shop", inv, customer, decimal.Zero, inv.DueAt.AddDate(0, 0, 1))
		assert.Equal(t, "OVERDUE", late.Status)
	})
}

func TestService_SendInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("renders, archives and delivers", func(t *testing.T) {
		svc, d := newTestService(nil)
		archive := new(MockArchive)
		svc.SetArchive(archive)
		customer := newCustomer(t)
		inv := newSentInvoice(t, customer.ID)

		d.invoices.On("FindByID", ctx, inv.ID).Return(inv, nil)
		d.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		d.payments.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
		d.renderer.On("Render", ctx, mock.MatchedBy(func(doc *InvoiceDocument) bool {
			return doc.InvoiceID == inv.ID && doc.Customer.Email == "billing@acme.test"
		})).Return(pdf, nil)
		archive.On("Store", ctx, mock.MatchedBy(func(key string) bool {
			return key == "2026/"+inv.ID.String()+"/invoice-INV-202603-0001.pdf"
		}), pdf).Return("s3://invoices/key", nil)
		d.deliverer.On("Deliver", ctx, mock.MatchedBy(func(msg *Message) bool {
			return msg.To == "billing@acme.test" &&
				msg.Subject == "Invoice INV-202603-0001 from Tiny Shop" &&
				len(msg.Attachments) == 1 &&
				msg.Attachments[0].ContentType == ContentTypePDF
		})).Return(nil)

		result, err := svc.SendInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, "billing@acme.test", result.To)
		assert.Equal(t, "s3://invoices/key", result.Location)
		assert.Equal(t, len(pdf.Content), result.Size)
		archive.AssertExpectations(t)
		d.deliverer.AssertExpectations(t)
	})

	t.Run("skips archive when not configured", func(t *testing.T) {
		svc, d := newTestService(nil)
		customer := newCustomer(t)
		inv := newSentInvoice(t, customer.ID)

		d.invoices.On("FindByID", ctx, inv.ID).Return(inv, nil)
		d.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		d.payments.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
		d.renderer.On("Render", ctx, mock.Anything).Return(pdf, nil)
		d.deliverer.On("Deliver", ctx, mock.Anything).Return(nil)

		result, err := svc.SendInvoice(ctx, inv.ID)
		require.NoError(t, err)
		assert.Empty(t, result.Location)
	})

	t.Run("missing invoice", func(t *testing.T) {
		svc, d := newTestService(nil)
		id := uuid.New()
		d.invoices.On("FindByID", ctx, id).Return(nil, shared.NewNotFoundError("Invoice", id))

		_, err := svc.SendInvoice(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		d.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
	})

	t.Run("render failure is not delivered", func(t *testing.T) {
		svc, d := newTestService(nil)
		customer := newCustomer(t)
		inv := newSentInvoice(t, customer.ID)

		d.invoices.On("FindByID", ctx, inv.ID).Return(inv, nil)
		d.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		d.payments.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
		d.renderer.On("Render", ctx, mock.Anything).Return(nil, errors.New("chrome crashed"))

		_, err := svc.SendInvoice(ctx, inv.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chrome crashed")
		d.deliverer.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
	})

	t.Run("archive failure is not delivered", func(t *testing.T) {
		svc, d := newTestService(nil)
		archive := new(MockArchive)
		svc.SetArchive(archive)
		customer := newCustomer(t)
		inv := newSentInvoice(t, customer.ID)

		d.invoices.On("FindByID", ctx, inv.ID).Return(inv, nil)
		d.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		d.payments.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
		d.renderer.On("Render", ctx, mock.Anything).Return(pdf, nil)
		archive.On("Store", ctx, mock.Anything, pdf).Return("", errors.New("bucket gone"))

		_, err := svc.SendInvoice(ctx, inv.ID)
		require.Error(t, err)
		d.deliverer.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
	})
}

func TestInvoiceSentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("subscribes to InvoiceSent", func(t *testing.T) {
		h := NewInvoiceSentHandler(nil, nil)
		assert.Equal(t, []string{billing.EventTypeInvoiceSent}, h.EventTypes())
	})

	t.Run("delivers on event", func(t *testing.T) {
		svc, d := newTestService(nil)
		customer := newCustomer(t)
		inv := newSentInvoice(t, customer.ID)

		d.invoices.On("FindByID", ctx, inv.ID).Return(inv, nil)
		d.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		d.payments.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
		d.renderer.On("Render", ctx, mock.Anything).Return(pdf, nil)
		d.deliverer.On("Deliver", ctx, mock.Anything).Return(nil)

		h := NewInvoiceSentHandler(svc, nil)
		require.NoError(t, h.Handle(ctx, billing.NewInvoiceSentEvent(inv)))
		d.deliverer.AssertNumberOfCalls(t, "Deliver", 1)
	})

	t.Run("logs and returns delivery failure", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		svc, d := newTestService(nil)
		customer := newCustomer(t)
		inv := newSentInvoice(t, customer.ID)

		d.invoices.On("FindByID", ctx, inv.ID).Return(inv, nil)
		d.customers.On("FindByID", ctx, customer.ID).Return(customer, nil)
		d.payments.On("SumByInvoice", ctx, inv.ID).Return(decimal.Zero, nil)
		d.renderer.On("Render", ctx, mock.Anything).Return(pdf, nil)
		d.deliverer.On("Deliver", ctx, mock.Anything).Return(errors.New("smtp: 550"))

		h := NewInvoiceSentHandler(svc, zap.New(core))
		err := h.Handle(ctx, billing.NewInvoiceSentEvent(inv))
		require.Error(t, err)
		assert.Equal(t, 1, logs.FilterMessage("Failed to deliver invoice document").Len())
	})

	t.Run("rejects other events", func(t *testing.T) {
		h := NewInvoiceSentHandler(nil, nil)
		inv := newSentInvoice(t, uuid.New())
		err := h.Handle(ctx, billing.NewInvoiceCreatedEvent(inv))
		assert.Error(t, err)
	})
}
