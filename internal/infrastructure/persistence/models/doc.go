// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: shared columns (BaseModel, AggregateModel)
// - catalog.go: products
// - partner.go: customers
// - billing.go: invoices and invoice_items
// - finance.go: payments
package models
