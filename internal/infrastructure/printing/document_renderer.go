package printing

import (
	"context"

	"github.com/invoicing/backend/internal/application/document"
	"go.uber.org/zap"
)

// HTMLRenderer renders invoices to HTML without a browser. It is used when
// PDF rendering is disabled.
type HTMLRenderer struct {
	template *InvoiceTemplate
}

// NewHTMLRenderer creates a new HTMLRenderer
func NewHTMLRenderer(template *InvoiceTemplate) *HTMLRenderer {
	return &HTMLRenderer{template: template}
}

// Render renders the invoice as an HTML page
func (r *HTMLRenderer) Render(_ context.Context, doc *document.InvoiceDocument) (*document.RenderedDocument, error) {
	html, err := r.template.Execute(doc)
	if err != nil {
		return nil, err
	}
	return &document.RenderedDocument{
		Content:     []byte(html),
		ContentType: document.ContentTypeHTML,
		Extension:   "html",
	}, nil
}

// PDFDocumentRenderer renders invoices to PDF through a PDFRenderer
type PDFDocumentRenderer struct {
	template  *InvoiceTemplate
	pdf       PDFRenderer
	paperSize PaperSize
	margins   Margins
	logger    *zap.Logger
}

// PDFDocumentRendererOption configures a PDFDocumentRenderer
type PDFDocumentRendererOption func(*PDFDocumentRenderer)

// WithPaperSize overrides the A4 default
func WithPaperSize(size PaperSize) PDFDocumentRendererOption {
	return func(r *PDFDocumentRenderer) {
		r.paperSize = size
	}
}

// NewPDFDocumentRenderer creates a renderer producing A4 PDFs
func NewPDFDocumentRenderer(template *InvoiceTemplate, pdf PDFRenderer, logger *zap.Logger, opts ...PDFDocumentRendererOption) *PDFDocumentRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &PDFDocumentRenderer{
		template:  template,
		pdf:       pdf,
		paperSize: PaperSizeA4,
		margins:   DefaultMargins(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render renders the invoice as a PDF
func (r *PDFDocumentRenderer) Render(ctx context.Context, doc *document.InvoiceDocument) (*document.RenderedDocument, error) {
	html, err := r.template.Execute(doc)
	if err != nil {
		return nil, err
	}

	result, err := r.pdf.Render(ctx, &RenderRequest{
		HTML:       html,
		PaperSize:  r.paperSize,
		Margins:    r.margins,
		Title:      "Invoice " + doc.InvoiceNumber,
		FooterHTML: pageFooter,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Invoice rendered",
		zap.String("invoice_number", doc.InvoiceNumber),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration),
	)
	return &document.RenderedDocument{
		Content:     result.PDFData,
		ContentType: document.ContentTypePDF,
		Extension:   "pdf",
	}, nil
}

// Close releases the underlying PDF renderer
func (r *PDFDocumentRenderer) Close() error {
	return r.pdf.Close()
}

const pageFooter = `<div style="font-size:8px;width:100%;text-align:center;color:#888;">` +
	`<span class="pageNumber"></span> / <span class="totalPages"></span></div>`

var (
	_ document.Renderer = (*HTMLRenderer)(nil)
	_ document.Renderer = (*PDFDocumentRenderer)(nil)
)
