package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/finance"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService records payments against invoices and settles invoices
// once they are fully paid.
type LedgerService struct {
	scope          TransactionScope
	invoices       billing.InvoiceRepository
	payments       finance.PaymentRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	invoices billing.InvoiceRepository,
	payments finance.PaymentRepository,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		scope:    scope,
		invoices: invoices,
		payments: payments,
		logger:   logger.Named("ledger_service"),
		now:      time.Now,
	}
}

// SetEventPublisher sets the publisher used after each committed mutation
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// RecordPayment records a payment under the invoice lock. The payment is
// rejected when it would bring the total paid above the invoice total. When
// it covers the remaining balance the invoice is settled in the same
// transaction.
func (s *LedgerService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, req RecordPaymentRequest) (*RecordPaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record_payment",
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, string(req.Method),
	)
	defer span.End()

	var (
		payment *finance.Payment
		invoice *billing.Invoice
		result  *settlement
		paid    decimal.Decimal
		paidAt  time.Time
	)
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == billing.InvoiceStatusCancelled {
			return shared.NewInvalidStateError(
				fmt.Sprintf("invoice %s is cancelled and cannot receive payments", inv.InvoiceNumber),
				map[string]any{"invoice_id": inv.ID.String(), "status": inv.Status.String()},
			)
		}

		p, err := finance.NewPayment(inv.ID, req.Amount, req.Method, req.TransactionID, paidAt, req.Notes)
		if err != nil {
			return err
		}
		if p.TransactionID != nil {
			exists, err := repos.Payments().ExistsByTransactionID(ctx, *p.TransactionID)
			if err != nil {
				return err
			}
			if exists {
				return shared.ErrAlreadyExists.WithDetail("transaction_id", *p.TransactionID)
			}
		}

		alreadyPaid, err := repos.Payments().SumByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if err := finance.EnsureWithinBalance(inv.ID, inv.TotalAmount, alreadyPaid, p.Amount); err != nil {
			return err
		}

		if err := repos.Payments().Create(ctx, p); err != nil {
			return err
		}
		paid = alreadyPaid.Add(p.Amount)

		if finance.Balance(inv.TotalAmount, paid).IsZero() && inv.Status != billing.InvoiceStatusPaid {
			settled, err := settle(ctx, repos, inv)
			if err != nil {
				return err
			}
			result = settled
		}

		payment = p
		invoice = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, payment.ID.String())
	if result != nil {
		telemetry.AddEvent(span, "invoice_settled", telemetry.SpanAttrInvoiceNumber, invoice.InvoiceNumber)
	}

	s.logger.Info("Payment recorded",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("method", payment.Method.String()),
	)
	s.publishSettlement(ctx, payment, invoice, result)

	return &RecordPaymentResponse{
		Payment: ToPaymentResponse(payment),
		Balance: BalanceResponse{
			InvoiceID:   invoice.ID,
			TotalAmount: invoice.TotalAmount,
			TotalPaid:   paid,
			BalanceDue:  finance.Balance(invoice.TotalAmount, paid),
		},
		InvoiceStatus: invoice.EffectiveStatus(s.now()).String(),
	}, nil
}

// MarkInvoicePaid settles an invoice explicitly, regardless of the payments
// recorded. A second call fails with an already paid error and never takes
// stock again.
func (s *LedgerService) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "mark_invoice_paid",
		telemetry.SpanAttrInvoiceID, invoiceID.String())
	defer span.End()

	var (
		invoice *billing.Invoice
		result  *settlement
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		settled, err := settle(ctx, repos, inv)
		if err != nil {
			return err
		}
		if !settled.Settled {
			return shared.NewInvalidStateError(
				fmt.Sprintf("invoice %s is already paid", inv.InvoiceNumber),
				map[string]any{"invoice_id": inv.ID.String()},
			)
		}

		invoice = inv
		result = settled
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishSettlement(ctx, nil, invoice, result)

	response := ToInvoiceResponse(invoice, s.now())
	return &response, nil
}

// GetTotalPaid returns the sum of payments recorded for an invoice
func (s *LedgerService) GetTotalPaid(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	if _, err := s.invoices.FindByID(ctx, invoiceID); err != nil {
		return decimal.Zero, err
	}
	return s.payments.SumByInvoice(ctx, invoiceID)
}

// GetBalanceDue returns the invoice total minus payments, never below zero
func (s *LedgerService) GetBalanceDue(ctx context.Context, invoiceID uuid.UUID) (*BalanceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.SumByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{
		InvoiceID:   inv.ID,
		TotalAmount: inv.TotalAmount,
		TotalPaid:   paid,
		BalanceDue:  finance.Balance(inv.TotalAmount, paid),
	}, nil
}

// ListPayments lists the payments of an invoice ordered by payment date
func (s *LedgerService) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.invoices.FindByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	payments, err := s.payments.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = ToPaymentResponse(&payments[i])
	}
	return responses, nil
}

func (s *LedgerService) publishSettlement(ctx context.Context, payment *finance.Payment, invoice *billing.Invoice, result *settlement) {
	if payment != nil {
		publishEvents(ctx, s.eventPublisher, s.logger, payment)
	}
	publishSettlement(ctx, s.eventPublisher, s.logger, invoice, result)
}
