// Package billing provides the invoice aggregate of the invoicing core.
//
// This package implements the invoicing bounded context, which is responsible for:
//   - Invoices and their ordered line items
//   - The invoice status machine (DRAFT, SENT, PAID, CANCELLED) and the
//     derived OVERDUE projection
//   - Recomputing subtotal, tax and total from line items (Reconciler)
//   - Generating invoice numbers
//
// Key Aggregates:
//   - Invoice: owns its InvoiceItems; immutable once PAID or CANCELLED
//
// The billing domain integrates with:
//   - Catalog domain: product prices are snapshotted onto items
//   - Partner domain: invoices are issued to active customers
//   - Finance domain: payments settle invoices
package billing
