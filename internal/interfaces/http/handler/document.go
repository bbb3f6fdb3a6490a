package handler

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/invoicing/backend/internal/application/document"
)

// DocumentHandler renders and delivers invoice documents
type DocumentHandler struct {
	BaseHandler
	documentService *document.Service
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService *document.Service) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// RegisterRoutes registers the document routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	invoices.GET("/:id/document", h.Download)
	invoices.POST("/:id/document/send", h.Send)
}

// SendResponse is returned after an invoice document was delivered
type SendResponse struct {
	InvoiceID string `json:"invoice_id"`
	To        string `json:"to"`
	Location  string `json:"location,omitempty"`
	Size      int    `json:"size"`
}

// Download handles GET /invoices/:id/document. Pass ?inline=true to view
// the document in the browser instead of downloading it.
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	doc, rendered, err := h.documentService.RenderInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	disposition := "attachment"
	if inline, _ := strconv.ParseBool(c.Query("inline")); inline {
		disposition = "inline"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": doc.FileName(rendered.Extension),
	}))
	c.Data(http.StatusOK, rendered.ContentType, rendered.Content)
}

// Send handles POST /invoices/:id/document/send
func (h *DocumentHandler) Send(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.documentService.SendInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SendResponse{
		InvoiceID: result.InvoiceID.String(),
		To:        result.To,
		Location:  result.Location,
		Size:      result.Size,
	})
}
