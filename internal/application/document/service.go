package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/finance"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ServiceConfig holds document settings
type ServiceConfig struct {
	CompanyName string
}

// SendResult describes a delivered invoice document
type SendResult struct {
	InvoiceID uuid.UUID
	To        string
	Location  string // archive location, empty when archiving is disabled
	Size      int
}

// Service renders invoices, archives the documents and delivers them to
// customers. It runs outside of any transaction and holds no locks.
type Service struct {
	invoices  billing.InvoiceRepository
	customers partner.CustomerRepository
	payments  finance.PaymentRepository
	renderer  Renderer
	deliverer Deliverer
	archive   Archive
	cfg       ServiceConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new document Service
func NewService(
	invoices billing.InvoiceRepository,
	customers partner.CustomerRepository,
	payments finance.PaymentRepository,
	renderer Renderer,
	deliverer Deliverer,
	cfg ServiceConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		invoices:  invoices,
		customers: customers,
		payments:  payments,
		renderer:  renderer,
		deliverer: deliverer,
		cfg:       cfg,
		logger:    logger.Named("document"),
		now:       time.Now,
	}
}

// SetArchive enables archiving of delivered documents
func (s *Service) SetArchive(archive Archive) {
	s.archive = archive
}

// RenderInvoice renders the current state of an invoice
func (s *Service) RenderInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDocument, *RenderedDocument, error) {
	doc, err := s.load(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	rendered, err := s.renderer.Render(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("render invoice %s: %w", doc.InvoiceNumber, err)
	}
	return doc, rendered, nil
}

// SendInvoice renders an invoice, archives the document and delivers it to
// the customer's e-mail address
func (s *Service) SendInvoice(ctx context.Context, invoiceID uuid.UUID) (result *SendResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "document", "send_invoice",
		telemetry.SpanAttrInvoiceID, invoiceID.String())
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	doc, rendered, err := s.RenderInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if doc.Customer.Email == "" {
		return nil, shared.NewInvalidStateError("Customer has no e-mail address", map[string]any{
			"invoice_id": invoiceID.String(),
		})
	}

	result = &SendResult{
		InvoiceID: invoiceID,
		To:        doc.Customer.Email,
		Size:      rendered.Size(),
	}

	if s.archive != nil {
		location, err := s.archive.Store(ctx, doc.ArchiveKey(rendered.Extension), rendered)
		if err != nil {
			return nil, fmt.Errorf("archive invoice %s: %w", doc.InvoiceNumber, err)
		}
		result.Location = location
	}

	msg := &Message{
		To:      doc.Customer.Email,
		Subject: fmt.Sprintf("Invoice %s from %s", doc.InvoiceNumber, s.cfg.CompanyName),
		Body: fmt.Sprintf("Dear %s,\n\nplease find attached invoice %s for %s, due on %s.\n",
			doc.Customer.Name, doc.InvoiceNumber, doc.TotalAmount.StringFixed(2), doc.DueAt.Format("2006-01-02")),
		Attachments: []Attachment{{
			FileName:    doc.FileName(rendered.Extension),
			ContentType: rendered.ContentType,
			Content:     rendered.Content,
		}},
	}
	if err := s.deliverer.Deliver(ctx, msg); err != nil {
		return nil, fmt.Errorf("deliver invoice %s: %w", doc.InvoiceNumber, err)
	}

	s.logger.Info("Invoice document delivered",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("invoice_number", doc.InvoiceNumber),
		zap.String("to", result.To),
		zap.String("location", result.Location),
		zap.Int("size", result.Size),
	)
	return result, nil
}

func (s *Service) load(ctx context.Context, invoiceID uuid.UUID) (*InvoiceDocument, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.FindByID(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.SumByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	return NewInvoiceDocument(s.cfg.CompanyName, inv, customer, paid, s.now()), nil
}

// InvoiceSentHandler delivers the invoice document once an invoice is sent
type InvoiceSentHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewInvoiceSentHandler creates a handler for InvoiceSent events
func NewInvoiceSentHandler(service *Service, logger *zap.Logger) *InvoiceSentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceSentHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceSentHandler) EventTypes() []string {
	return []string{billing.EventTypeInvoiceSent}
}

// Handle processes an InvoiceSentEvent
func (h *InvoiceSentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	sent, ok := event.(*billing.InvoiceSentEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			billing.EventTypeInvoiceSent, event.EventType())
	}

	if _, err := h.service.SendInvoice(ctx, sent.InvoiceID); err != nil {
		h.logger.Error("Failed to deliver invoice document",
			zap.String("invoice_id", sent.InvoiceID.String()),
			zap.String("invoice_number", sent.InvoiceNumber),
			zap.Error(err),
		)
		return err
	}
	return nil
}

var _ shared.EventHandler = (*InvoiceSentHandler)(nil)
