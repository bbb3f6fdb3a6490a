// Package printing renders invoice documents.
//
// InvoiceTemplate turns a document.InvoiceDocument into HTML with amounts
// formatted for a locale. HTMLRenderer returns that HTML as is, while
// PDFDocumentRenderer prints it to PDF through a PDFRenderer such as the
// headless Chrome based ChromedpRenderer.
//
// Example usage:
//
//	tmpl, err := NewInvoiceTemplate("en-US")
//	if err != nil {
//	    return err
//	}
//	chrome := NewChromedpRenderer(&ChromedpConfig{NoSandbox: true})
//	defer chrome.Close()
//
//	renderer := NewPDFDocumentRenderer(tmpl, chrome, logger)
//	rendered, err := renderer.Render(ctx, doc)
package printing
