// Package report holds the read models served to the reporting layer.
// Reports are derived from invoices and payments and are never written back.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// MonthlyRevenue is the amount received on PAID invoices in one calendar month
type MonthlyRevenue struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// StatusCount is the number of invoices with a given effective status
type StatusCount struct {
	Status billing.InvoiceStatus `json:"status"`
	Count  int64                 `json:"count"`
}

// CustomerRevenue is the total received from one customer
type CustomerRevenue struct {
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Amount       decimal.Decimal `json:"amount"`
	InvoiceCount int64           `json:"invoice_count"`
}

// Outstanding summarizes money still owed on open invoices
type Outstanding struct {
	InvoiceCount int64           `json:"invoice_count"`
	Invoiced     decimal.Decimal `json:"invoiced"`
	Paid         decimal.Decimal `json:"paid"`
	Balance      decimal.Decimal `json:"balance"`
}

// Dashboard bundles every report shown on the overview page
type Dashboard struct {
	GeneratedAt    time.Time         `json:"generated_at"`
	MonthlyRevenue []MonthlyRevenue  `json:"monthly_revenue"`
	Outstanding    Outstanding       `json:"outstanding"`
	StatusCounts   []StatusCount     `json:"status_counts"`
	TopCustomers   []CustomerRevenue `json:"top_customers"`
}

// ReportRepository runs the read-only report queries
type ReportRepository interface {
	// MonthlyRevenue returns one entry per month with payments on PAID
	// invoices received at or after since, oldest first
	MonthlyRevenue(ctx context.Context, since time.Time) ([]MonthlyRevenue, error)

	// Outstanding sums totals and payments of invoices that are neither PAID nor CANCELLED
	Outstanding(ctx context.Context) (Outstanding, error)

	// StatusCounts counts invoices by effective status as of asOf
	StatusCounts(ctx context.Context, asOf time.Time) ([]StatusCount, error)

	// TopCustomers returns the customers with the highest amount paid
	TopCustomers(ctx context.Context, limit int) ([]CustomerRevenue, error)
}
