package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/invoicing/backend/internal/application/billing"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

// InvoiceHandler handles invoice and invoice item endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// RegisterRoutes registers the invoice routes. Item routes live under
// /invoice-items because gin cannot mix :id and :itemId wildcards below
// the same segment with other /invoices/:id routes.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.GET("", h.List)
	invoices.POST("", h.Create)
	invoices.GET("/:id", h.Get)
	invoices.PUT("/:id", h.Update)
	invoices.DELETE("/:id", h.Delete)
	invoices.POST("/:id/clone", h.Clone)
	invoices.POST("/:id/send", h.MarkSent)
	invoices.POST("/:id/cancel", h.Cancel)
	invoices.POST("/:id/recalculate", h.Recalculate)
	invoices.POST("/:id/items", h.AddItem)

	items := rg.Group("/invoice-items")
	items.PATCH("/:id", h.UpdateItemQuantity)
	items.DELETE("/:id", h.RemoveItem)
}

// InvoiceListQuery holds the query parameters of GET /invoices
type InvoiceListQuery struct {
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
	Search     string `form:"search"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var query InvoiceListQuery
	if !h.bindQuery(c, &query) {
		return
	}
	page := dto.ListRequest{
		Page:     query.Page,
		PageSize: query.PageSize,
		OrderBy:  query.OrderBy,
		OrderDir: query.OrderDir,
		Search:   query.Search,
	}
	page.Normalize()

	filter := billing.InvoiceFilter{
		Filter: shared.Filter{
			Page:     page.Page,
			PageSize: page.PageSize,
			OrderBy:  page.OrderBy,
			OrderDir: page.OrderDir,
			Search:   page.Search,
		},
	}
	if query.CustomerID != "" {
		id := uuid.MustParse(query.CustomerID)
		filter.CustomerID = &id
	}
	if query.Status != "" {
		status := billing.InvoiceStatus(strings.ToUpper(query.Status))
		if !status.IsValid() {
			h.BadRequest(c, "Invalid invoice status")
			return
		}
		filter.Status = &status
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, page.Page, page.PageSize)
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req billingapp.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Update handles PUT /invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req billingapp.UpdateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	invoice, err := h.invoiceService.UpdateInvoiceDetails(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Delete handles DELETE /invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Clone handles POST /invoices/:id/clone. The body is optional.
func (h *InvoiceHandler) Clone(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req billingapp.CloneInvoiceRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	invoice, err := h.invoiceService.CloneInvoice(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// MarkSent handles POST /invoices/:id/send
func (h *InvoiceHandler) MarkSent(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.MarkSent(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Cancel handles POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Recalculate handles POST /invoices/:id/recalculate
func (h *InvoiceHandler) Recalculate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.RecalculateInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// AddItem handles POST /invoices/:id/items
func (h *InvoiceHandler) AddItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req billingapp.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.invoiceService.AddItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// UpdateItemQuantity handles PATCH /invoice-items/:id
func (h *InvoiceHandler) UpdateItemQuantity(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req billingapp.UpdateItemQuantityRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.invoiceService.UpdateItemQuantity(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// RemoveItem handles DELETE /invoice-items/:id and returns the
// recalculated invoice
func (h *InvoiceHandler) RemoveItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.RemoveItem(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}
