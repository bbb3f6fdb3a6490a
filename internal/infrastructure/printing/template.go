package printing

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"
	"strings"

	"github.com/invoicing/backend/internal/application/document"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

const dateLayout = "Jan 2, 2006"

// InvoiceTemplate renders invoice documents to HTML. Amounts are formatted
// for the configured locale.
type InvoiceTemplate struct {
	tmpl *template.Template
	tag  language.Tag
}

// NewInvoiceTemplate parses the embedded invoice template. An unknown
// locale falls back to American English.
func NewInvoiceTemplate(locale string) (*InvoiceTemplate, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/invoice.html")
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to parse invoice template", err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &InvoiceTemplate{tmpl: tmpl, tag: tag}, nil
}

// Locale returns the locale amounts are formatted in
func (t *InvoiceTemplate) Locale() language.Tag {
	return t.tag
}

type invoiceView struct {
	Company     string
	Number      string
	Status      string
	IssuedAt    string
	DueAt       string
	Customer    document.Party
	Lines       []lineView
	Subtotal    string
	TaxAmount   string
	TotalAmount string
	AmountPaid  string
	BalanceDue  string
	Notes       string
}

type lineView struct {
	Position    int
	Description string
	Quantity    string
	UnitPrice   string
	Total       string
}

// Execute renders the document to HTML
func (t *InvoiceTemplate) Execute(doc *document.InvoiceDocument) (string, error) {
	// Printers and casers keep state and are created per call
	p := message.NewPrinter(t.tag)
	caser := cases.Title(t.tag)
	money := func(d decimal.Decimal) string { return formatMoney(p, d) }

	view := invoiceView{
		Company:     doc.CompanyName,
		Number:      doc.InvoiceNumber,
		Status:      caser.String(strings.ToLower(doc.Status)),
		IssuedAt:    doc.IssuedAt.Format(dateLayout),
		DueAt:       doc.DueAt.Format(dateLayout),
		Customer:    doc.Customer,
		Lines:       make([]lineView, len(doc.Lines)),
		Subtotal:    money(doc.Subtotal),
		TaxAmount:   money(doc.TaxAmount),
		TotalAmount: money(doc.TotalAmount),
		AmountPaid:  money(doc.AmountPaid),
		BalanceDue:  money(doc.BalanceDue),
		Notes:       doc.Notes,
	}
	for i, line := range doc.Lines {
		view.Lines[i] = lineView{
			Position:    line.Position,
			Description: line.Description,
			Quantity:    p.Sprint(number.Decimal(line.Quantity)),
			UnitPrice:   money(line.UnitPrice),
			Total:       money(line.Total),
		}
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, view); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to execute invoice template", err)
	}
	return buf.String(), nil
}

// FormatMoney formats an amount with two fraction digits and the locale's
// grouping and decimal separators
func (t *InvoiceTemplate) FormatMoney(d decimal.Decimal) string {
	return formatMoney(message.NewPrinter(t.tag), d)
}

func formatMoney(p *message.Printer, d decimal.Decimal) string {
	// Integer and fraction are formatted separately so no float rounding
	// touches the amount
	rounded := d.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	whole := rounded.Truncate(0)
	cents := rounded.Sub(whole).Shift(2).IntPart()

	intPart := p.Sprint(number.Decimal(whole.IntPart()))
	return sign + intPart + decimalSeparator(p) + leftPad2(cents)
}

// decimalSeparator derives the locale's separator from a formatted fraction
func decimalSeparator(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	sep := strings.Trim(s, "0123456789")
	if sep == "" {
		return "."
	}
	return sep
}

func leftPad2(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}
