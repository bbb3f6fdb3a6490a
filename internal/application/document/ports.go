package document

import "context"

// RenderedDocument is the output of a Renderer
type RenderedDocument struct {
	Content     []byte
	ContentType string
	// Extension is the file extension without the dot, e.g. "pdf"
	Extension string
}

// Size returns the content length in bytes
func (r *RenderedDocument) Size() int {
	return len(r.Content)
}

// Renderer turns an invoice into a printable document
type Renderer interface {
	Render(ctx context.Context, doc *InvoiceDocument) (*RenderedDocument, error)
}

// Archive keeps a copy of every delivered document
type Archive interface {
	// Store saves the content under key and returns its location
	Store(ctx context.Context, key string, doc *RenderedDocument) (string, error)
}

// Attachment is a file attached to a delivered message
type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Message is a document delivery to a customer
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Deliverer sends documents to customers
type Deliverer interface {
	Deliver(ctx context.Context, msg *Message) error
}
