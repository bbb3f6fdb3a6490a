package persistence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/report"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReportRepository implements report.ReportRepository with portable SQL
// so that it runs on both postgres and sqlite
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

type paymentRow struct {
	PaidAt time.Time
	Amount decimal.Decimal
}

// MonthlyRevenue groups payments on PAID invoices by calendar month. Month
// bucketing happens in Go because date functions differ between dialects.
func (r *GormReportRepository) MonthlyRevenue(ctx context.Context, since time.Time) ([]report.MonthlyRevenue, error) {
	var rows []paymentRow
	if err := r.db.WithContext(ctx).
		Table("payments AS p").
		Select("p.paid_at AS paid_at, p.amount AS amount").
		Joins("JOIN invoices AS i ON i.id = p.invoice_id").
		Where("i.status = ? AND p.paid_at >= ?", billing.InvoiceStatusPaid, since).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}

	type key struct{ year, month int }
	buckets := make(map[key]decimal.Decimal)
	for _, row := range rows {
		paidAt := row.PaidAt.UTC()
		k := key{paidAt.Year(), int(paidAt.Month())}
		buckets[k] = buckets[k].Add(row.Amount)
	}

	result := make([]report.MonthlyRevenue, 0, len(buckets))
	for k, amount := range buckets {
		result = append(result, report.MonthlyRevenue{Year: k.year, Month: k.month, Amount: shared.RoundMoney(amount)})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year < result[j].Year
		}
		return result[i].Month < result[j].Month
	})
	return result, nil
}

// Outstanding sums what is still owed on invoices that are neither PAID nor CANCELLED
func (r *GormReportRepository) Outstanding(ctx context.Context) (report.Outstanding, error) {
	var invoiced struct {
		Count int64
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Table("invoices").
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Where("status NOT IN ?", lockedStatuses).
		Scan(&invoiced).Error; err != nil {
		return report.Outstanding{}, fmt.Errorf("outstanding invoices: %w", err)
	}

	var paid decimal.Decimal
	if err := r.db.WithContext(ctx).
		Table("payments AS p").
		Select("COALESCE(SUM(p.amount), 0)").
		Joins("JOIN invoices AS i ON i.id = p.invoice_id").
		Where("i.status NOT IN ?", lockedStatuses).
		Row().Scan(&paid); err != nil {
		return report.Outstanding{}, fmt.Errorf("outstanding payments: %w", err)
	}

	balance := invoiced.Total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return report.Outstanding{
		InvoiceCount: invoiced.Count,
		Invoiced:     shared.RoundMoney(invoiced.Total),
		Paid:         shared.RoundMoney(paid),
		Balance:      shared.RoundMoney(balance),
	}, nil
}

// StatusCounts counts invoices by effective status. Open invoices past their
// due date are counted as OVERDUE instead of under their stored status.
func (r *GormReportRepository) StatusCounts(ctx context.Context, asOf time.Time) ([]report.StatusCount, error) {
	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	var rows []report.StatusCount
	if err := r.db.WithContext(ctx).
		Table("invoices").
		Select("status, COUNT(*) AS count").
		Where("status IN ? OR due_at >= ?", lockedStatuses, today).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}

	var overdue int64
	if err := r.db.WithContext(ctx).
		Table("invoices").
		Where("status NOT IN ? AND due_at < ?", lockedStatuses, today).
		Count(&overdue).Error; err != nil {
		return nil, fmt.Errorf("overdue count: %w", err)
	}

	counts := make(map[billing.InvoiceStatus]int64, len(rows)+1)
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	counts[billing.InvoiceStatusOverdue] = overdue

	result := make([]report.StatusCount, 0, len(billing.AllInvoiceStatuses))
	for _, status := range billing.AllInvoiceStatuses {
		result = append(result, report.StatusCount{Status: status, Count: counts[status]})
	}
	return result, nil
}

// TopCustomers ranks customers by the total amount they have paid
func (r *GormReportRepository) TopCustomers(ctx context.Context, limit int) ([]report.CustomerRevenue, error) {
	if limit <= 0 {
		limit = 5
	}

	var rows []report.CustomerRevenue
	if err := r.db.WithContext(ctx).
		Table("payments AS p").
		Select("c.id AS customer_id, c.name AS customer_name, COALESCE(SUM(p.amount), 0) AS amount, COUNT(DISTINCT p.invoice_id) AS invoice_count").
		Joins("JOIN invoices AS i ON i.id = p.invoice_id").
		Joins("JOIN customers AS c ON c.id = i.customer_id").
		Group("c.id, c.name").
		Order("amount DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("top customers: %w", err)
	}
	for i := range rows {
		rows[i].Amount = shared.RoundMoney(rows[i].Amount)
	}
	return rows, nil
}

// Ensure GormReportRepository implements ReportRepository
var _ report.ReportRepository = (*GormReportRepository)(nil)
