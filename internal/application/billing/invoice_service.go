package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InvoiceServiceConfig holds the invoicing rules taken from configuration
type InvoiceServiceConfig struct {
	// NumberRetries bounds how often a colliding invoice number is regenerated
	NumberRetries int
	// DefaultDueDays is the payment term used when no due date is given
	DefaultDueDays int
}

// InvoiceService handles the invoice lifecycle: creation, line items,
// cloning, sending and cancelling. Every mutation runs in one transaction
// under the invoice row lock and reconciles totals before committing.
type InvoiceService struct {
	scope          TransactionScope
	invoices       billing.InvoiceRepository
	reconciler     *billing.Reconciler
	numbers        billing.NumberGenerator
	cfg            InvoiceServiceConfig
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope TransactionScope,
	invoices billing.InvoiceRepository,
	reconciler *billing.Reconciler,
	numbers billing.NumberGenerator,
	cfg InvoiceServiceConfig,
	logger *zap.Logger,
) *InvoiceService {
	if cfg.NumberRetries < 1 {
		cfg.NumberRetries = 5
	}
	if cfg.DefaultDueDays < 0 {
		cfg.DefaultDueDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		scope:      scope,
		invoices:   invoices,
		reconciler: reconciler,
		numbers:    numbers,
		cfg:        cfg,
		logger:     logger.Named("invoice_service"),
		now:        time.Now,
	}
}

// SetEventPublisher sets the publisher used after each committed mutation
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateInvoice opens a DRAFT invoice for an active customer. A generated
// number that collides with an existing one is replaced and the insert retried.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create",
		telemetry.SpanAttrCustomerID, req.CustomerID.String())
	defer span.End()

	issuedAt := s.now()
	if req.IssuedAt != nil {
		issuedAt = *req.IssuedAt
	}
	dueAt := issuedAt.AddDate(0, 0, s.cfg.DefaultDueDays)
	if req.DueAt != nil {
		dueAt = *req.DueAt
	}

	invoice, err := s.createWithUniqueNumber(ctx, func(repos TransactionalRepositories, number string) (*billing.Invoice, error) {
		if _, err := s.requireActiveCustomer(ctx, repos.Customers(), req.CustomerID); err != nil {
			return nil, err
		}

		inv, err := billing.NewInvoice(number, req.CustomerID, issuedAt, dueAt)
		if err != nil {
			return nil, err
		}
		inv.Notes = strings.TrimSpace(req.Notes)

		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return nil, err
		}
		return inv, nil
	}, issuedAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrInvoiceNumber, invoice.InvoiceNumber,
	)

	s.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("customer_id", invoice.CustomerID.String()),
	)
	publishEvents(ctx, s.eventPublisher, s.logger, invoice)

	response := ToInvoiceResponse(invoice, s.now())
	return &response, nil
}

// AddItem adds a product to an invoice, snapshotting its current unit price,
// and reconciles the invoice totals in the same transaction.
func (s *InvoiceService) AddItem(ctx context.Context, invoiceID uuid.UUID, req AddItemRequest) (*InvoiceItemResponse, error) {
	var added *billing.InvoiceItem

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.EnsureModifiable(); err != nil {
			return err
		}

		product, err := repos.Products().FindActiveByID(ctx, req.ProductID)
		if err != nil {
			return err
		}

		description := strings.TrimSpace(req.Description)
		if description == "" {
			description = product.InvoiceDescription()
		}
		item, err := inv.AddItem(product.ID, description, req.Quantity, product.UnitPrice)
		if err != nil {
			return err
		}
		if err := product.CheckAvailability(req.Quantity); err != nil {
			return err
		}

		if err := repos.Invoices().InsertItem(ctx, item); err != nil {
			return err
		}
		if _, err := reconcile(ctx, repos.Invoices(), s.reconciler, inv.ID); err != nil {
			return err
		}

		added = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Invoice item added",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("item_id", added.ID.String()),
		zap.Int("quantity", added.Quantity),
	)

	response := ToInvoiceItemResponse(added)
	return &response, nil
}

// RemoveItem deletes a line item and reconciles its invoice. The removal is
// rejected when the new total would fall below the payments already
// recorded, and settles the invoice when they cover it exactly.
func (s *InvoiceService) RemoveItem(ctx context.Context, itemID uuid.UUID) (*InvoiceResponse, error) {
	var (
		invoice *billing.Invoice
		result  *settlement
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.Invoices().FindItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, item.InvoiceID)
		if err != nil {
			return err
		}
		if err := inv.RemoveItem(itemID); err != nil {
			return err
		}

		if err := repos.Invoices().DeleteItem(ctx, itemID); err != nil {
			return err
		}
		settled, err := reconcileAgainstPayments(ctx, repos, s.reconciler, inv)
		if err != nil {
			return err
		}

		invoice = inv
		result = settled
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishSettlement(ctx, s.eventPublisher, s.logger, invoice, result)

	response := ToInvoiceResponse(invoice, s.now())
	return &response, nil
}

// UpdateItemQuantity changes the quantity of a line item and reconciles its
// invoice. Payments are checked against the new total as in RemoveItem.
func (s *InvoiceService) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, req UpdateItemQuantityRequest) (*InvoiceItemResponse, error) {
	var (
		invoice *billing.Invoice
		updated *billing.InvoiceItem
		result  *settlement
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.Invoices().FindItemByID(ctx, itemID)
		if err != nil {
			return err
		}
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, item.InvoiceID)
		if err != nil {
			return err
		}

		changed, err := inv.UpdateItemQuantity(itemID, req.Quantity)
		if err != nil {
			return err
		}

		product, err := repos.Products().FindByID(ctx, changed.ProductID)
		if err != nil {
			return err
		}
		if err := product.CheckAvailability(req.Quantity); err != nil {
			return err
		}

		if err := repos.Invoices().UpdateItem(ctx, changed); err != nil {
			return err
		}
		settled, err := reconcileAgainstPayments(ctx, repos, s.reconciler, inv)
		if err != nil {
			return err
		}

		invoice = inv
		updated = changed
		result = settled
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishSettlement(ctx, s.eventPublisher, s.logger, invoice, result)

	response := ToInvoiceItemResponse(updated)
	return &response, nil
}

// RecalculateInvoice reconciles the stored totals of an invoice with its items.
// It is allowed on every status because it never changes the items. A total
// that would fall below the payments recorded is rejected.
func (s *InvoiceService) RecalculateInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	var (
		invoice *billing.Invoice
		result  *settlement
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		settled, err := reconcileAgainstPayments(ctx, repos, s.reconciler, inv)
		if err != nil {
			return err
		}
		invoice = inv
		result = settled
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishSettlement(ctx, s.eventPublisher, s.logger, invoice, result)

	response := ToInvoiceResponse(invoice, s.now())
	return &response, nil
}

// CloneInvoice creates a new DRAFT invoice for the same customer with copies
// of the source items at their original prices. Without a due date the clone
// keeps the source's payment term.
func (s *InvoiceService) CloneInvoice(ctx context.Context, sourceID uuid.UUID, req CloneInvoiceRequest) (*InvoiceResponse, error) {
	issuedAt := s.now()

	clone, err := s.createWithUniqueNumber(ctx, func(repos TransactionalRepositories, number string) (*billing.Invoice, error) {
		source, err := repos.Invoices().FindByID(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		if _, err := s.requireActiveCustomer(ctx, repos.Customers(), source.CustomerID); err != nil {
			return nil, err
		}

		dueAt := issuedAt.Add(source.DueAt.Sub(source.IssuedAt))
		if req.DueAt != nil {
			dueAt = *req.DueAt
		}

		inv, err := source.Clone(number, issuedAt, dueAt)
		if err != nil {
			return nil, err
		}
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return nil, err
		}
		totals, err := reconcile(ctx, repos.Invoices(), s.reconciler, inv.ID)
		if err != nil {
			return nil, err
		}
		inv.ApplyTotals(totals)
		return inv, nil
	}, issuedAt)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice cloned",
		zap.String("source_id", sourceID.String()),
		zap.String("invoice_id", clone.ID.String()),
		zap.String("invoice_number", clone.InvoiceNumber),
	)
	publishEvents(ctx, s.eventPublisher, s.logger, clone)

	response := ToInvoiceResponse(clone, s.now())
	return &response, nil
}

// GetInvoice returns an invoice with its items
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv, s.now())
	return &response, nil
}

// ListInvoices lists invoices. Filtering by OVERDUE selects past-due open invoices.
func (s *InvoiceService) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]InvoiceListResponse, int64, error) {
	now := s.now()
	if filter.AsOf.IsZero() {
		filter.AsOf = now
	}
	invoices, total, err := s.invoices.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceListResponses(invoices, now), total, nil
}

// UpdateInvoiceDetails changes the due date and notes of a modifiable invoice
func (s *InvoiceService) UpdateInvoiceDetails(ctx context.Context, invoiceID uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	var invoice *billing.Invoice

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}

		dueAt := inv.DueAt
		if req.DueAt != nil {
			dueAt = *req.DueAt
		}
		notes := inv.Notes
		if req.Notes != nil {
			notes = strings.TrimSpace(*req.Notes)
		}
		if err := inv.UpdateDetails(dueAt, notes); err != nil {
			return err
		}
		if err := repos.Invoices().Update(ctx, inv); err != nil {
			return err
		}

		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := ToInvoiceResponse(invoice, s.now())
	return &response, nil
}

// MarkSent records that a DRAFT invoice was sent. The document is rendered
// and delivered by event handlers after the transaction commits.
func (s *InvoiceService) MarkSent(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "mark_sent",
		telemetry.SpanAttrInvoiceID, invoiceID.String())
	defer span.End()

	invoice, err := s.transition(ctx, invoiceID, func(_ TransactionalRepositories, inv *billing.Invoice) error {
		return inv.MarkSent()
	}, billing.InvoiceStatusSent, billing.InvoiceStatusDraft)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Invoice sent",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
	)
	publishEvents(ctx, s.eventPublisher, s.logger, invoice)

	response := ToInvoiceResponse(invoice, s.now())
	return &response, nil
}

// CancelInvoice moves an unpaid invoice into CANCELLED. Invoices with
// recorded payments cannot be cancelled because refunds are not supported.
func (s *InvoiceService) CancelInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.transition(ctx, invoiceID, func(repos TransactionalRepositories, inv *billing.Invoice) error {
		if err := inv.Cancel(); err != nil {
			return err
		}
		return ensureNoPayments(ctx, repos, inv)
	}, billing.InvoiceStatusCancelled, billing.InvoiceStatusDraft, billing.InvoiceStatusSent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice cancelled",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
	)
	publishEvents(ctx, s.eventPublisher, s.logger, invoice)

	response := ToInvoiceResponse(invoice, s.now())
	return &response, nil
}

// DeleteInvoice removes an invoice without payments together with its items.
// PAID invoices are kept because stock was already taken for them.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == billing.InvoiceStatusPaid {
			return shared.NewInvalidStateError(
				fmt.Sprintf("invoice %s is paid and cannot be deleted", inv.InvoiceNumber),
				map[string]any{"invoice_id": inv.ID.String(), "status": inv.Status.String()},
			)
		}
		if err := ensureNoPayments(ctx, repos, inv); err != nil {
			return err
		}
		return repos.Invoices().Delete(ctx, inv.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Invoice deleted", zap.String("invoice_id", invoiceID.String()))
	return nil
}

// transition locks the invoice, applies the in-memory state change and
// persists it with a conditional status update from the given statuses
func (s *InvoiceService) transition(
	ctx context.Context,
	invoiceID uuid.UUID,
	apply func(repos TransactionalRepositories, inv *billing.Invoice) error,
	to billing.InvoiceStatus,
	from ...billing.InvoiceStatus,
) (*billing.Invoice, error) {
	var invoice *billing.Invoice

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := apply(repos, inv); err != nil {
			return err
		}

		changed, err := repos.Invoices().TransitionStatus(ctx, inv.ID, to, inv.UpdatedAt, from...)
		if err != nil {
			return err
		}
		if !changed {
			return shared.NewInvalidStateError(
				fmt.Sprintf("invoice %s changed status concurrently", inv.InvoiceNumber),
				map[string]any{"invoice_id": inv.ID.String(), "target": to.String()},
			)
		}

		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// createWithUniqueNumber runs build in a fresh transaction for each attempt
// until the generated invoice number is accepted by the unique index
func (s *InvoiceService) createWithUniqueNumber(
	ctx context.Context,
	build func(repos TransactionalRepositories, number string) (*billing.Invoice, error),
	issuedAt time.Time,
) (*billing.Invoice, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.NumberRetries; attempt++ {
		number := s.numbers.Next(issuedAt)

		var created *billing.Invoice
		err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			inv, err := build(repos, number)
			if err != nil {
				return err
			}
			created = inv
			return nil
		})
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, err
		}

		lastErr = err
		s.logger.Warn("Invoice number collision, retrying",
			zap.String("invoice_number", number),
			zap.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("generate unique invoice number after %d attempts: %w", s.cfg.NumberRetries, lastErr)
}

func (s *InvoiceService) requireActiveCustomer(ctx context.Context, customers partner.CustomerRepository, customerID uuid.UUID) (*partner.Customer, error) {
	customer, err := customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsActive() {
		return nil, shared.NewInvalidStateError(
			fmt.Sprintf("customer %s is inactive", customer.ID),
			map[string]any{"customer_id": customer.ID.String()},
		)
	}
	return customer, nil
}

func ensureNoPayments(ctx context.Context, repos TransactionalRepositories, inv *billing.Invoice) error {
	count, err := repos.Payments().CountByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewInvalidStateError(
			fmt.Sprintf("invoice %s has %d recorded payments", inv.InvoiceNumber, count),
			map[string]any{"invoice_id": inv.ID.String(), "payment_count": count},
		)
	}
	return nil
}
