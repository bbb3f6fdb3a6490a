package handler

import (
	"github.com/gin-gonic/gin"
	billingapp "github.com/invoicing/backend/internal/application/billing"
)

// PaymentHandler handles the payment ledger endpoints of an invoice
type PaymentHandler struct {
	BaseHandler
	ledgerService *billingapp.LedgerService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(ledgerService *billingapp.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledgerService: ledgerService}
}

// RegisterRoutes registers the payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.GET("/:id/payments", h.List)
	invoices.POST("/:id/payments", h.Record)
	invoices.GET("/:id/balance", h.Balance)
	invoices.POST("/:id/mark-paid", h.MarkPaid)
}

// List handles GET /invoices/:id/payments
func (h *PaymentHandler) List(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	payments, err := h.ledgerService.ListPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// Record handles POST /invoices/:id/payments
func (h *PaymentHandler) Record(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req billingapp.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.ledgerService.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Balance handles GET /invoices/:id/balance
func (h *PaymentHandler) Balance(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	balance, err := h.ledgerService.GetBalanceDue(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// MarkPaid handles POST /invoices/:id/mark-paid
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.ledgerService.MarkInvoicePaid(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}
