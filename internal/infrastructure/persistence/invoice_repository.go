package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var lockedStatuses = []billing.InvoiceStatus{billing.InvoiceStatusPaid, billing.InvoiceStatusCancelled}

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID loads an invoice with its items ordered by position
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "invoice", id)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate locks the invoice row until the surrounding transaction
// ends, then loads its items
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "invoice", id)
	}
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", id).
		Order("position ASC, created_at ASC").
		Find(&model.Items).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber loads an invoice by its invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Where("invoice_number = ?", invoiceNumber).
		First(&model).Error; err != nil {
		return nil, translateError(err, "invoice", uuid.Nil)
	}
	return model.ToDomain(), nil
}

// FindItemByID loads a single item
func (r *GormInvoiceRepository) FindItemByID(ctx context.Context, itemID uuid.UUID) (*billing.InvoiceItem, error) {
	var model models.InvoiceItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", itemID).Error; err != nil {
		return nil, translateError(err, "invoice item", itemID)
	}
	return model.ToDomain(), nil
}

// FindAll lists invoices without their items along with the total count
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, InvoiceSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]billing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, total, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	asOf := filter.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		switch *filter.Status {
		case billing.InvoiceStatusOverdue:
			query = query.Where("status NOT IN ? AND due_at < ?", lockedStatuses, today)
		case billing.InvoiceStatusDraft, billing.InvoiceStatusSent:
			// past-due open invoices are reported as OVERDUE, not under their stored status
			query = query.Where("status = ? AND due_at >= ?", *filter.Status, today)
		default:
			query = query.Where("status = ?", *filter.Status)
		}
	}
	if filter.Search != "" {
		query = query.Where("LOWER(invoice_number) LIKE ?", likePattern(filter.Search))
	}
	for key, value := range filter.Filters {
		switch key {
		case "issued_from":
			query = query.Where("issued_at >= ?", value)
		case "issued_to":
			query = query.Where("issued_at <= ?", value)
		}
	}
	return query
}

// Create inserts a new invoice together with its items
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err, "invoice", invoice.ID)
	}
	return nil
}

// Update persists due date and notes. It never touches PAID or CANCELLED rows.
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *billing.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND status NOT IN ?", invoice.ID, lockedStatuses).
		Updates(map[string]any{
			"due_at":     invoice.DueAt,
			"notes":      invoice.Notes,
			"version":    invoice.Version,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var statuses []billing.InvoiceStatus
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", invoice.ID).
		Pluck("status", &statuses).Error; err != nil {
		return err
	}
	if len(statuses) == 0 {
		return shared.NewNotFoundError("invoice", invoice.ID)
	}
	status := statuses[0]
	return shared.NewInvalidStateError(
		fmt.Sprintf("invoice %s is %s and can no longer be modified", invoice.InvoiceNumber, status),
		map[string]any{"invoice_id": invoice.ID.String(), "status": status.String()},
	)
}

// InsertItem inserts a line item
func (r *GormInvoiceRepository) InsertItem(ctx context.Context, item *billing.InvoiceItem) error {
	model := models.InvoiceItemModelFromDomain(item)
	return translateError(r.db.WithContext(ctx).Create(model).Error, "invoice item", item.ID)
}

// UpdateItem persists quantity and total of a line item
func (r *GormInvoiceRepository) UpdateItem(ctx context.Context, item *billing.InvoiceItem) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceItemModel{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"quantity":   item.Quantity,
			"total":      item.Total,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("invoice item", item.ID)
	}
	return nil
}

// DeleteItem deletes a line item
func (r *GormInvoiceRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceItemModel{}, "id = ?", itemID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("invoice item", itemID)
	}
	return nil
}

// SumItemTotals returns the sum of the persisted item totals of an invoice
func (r *GormInvoiceRepository) SumItemTotals(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceItemModel{}).
		Select("COALESCE(SUM(total), 0)").
		Where("invoice_id = ?", invoiceID).
		Row().Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum invoice items: %w", err)
	}
	return shared.RoundMoney(sum), nil
}

// UpdateTotals writes the derived monetary fields regardless of status
func (r *GormInvoiceRepository) UpdateTotals(ctx context.Context, invoiceID uuid.UUID, totals billing.Totals) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", invoiceID).
		Updates(map[string]any{
			"subtotal":     totals.Subtotal,
			"tax_amount":   totals.TaxAmount,
			"total_amount": totals.TotalAmount,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("invoice", invoiceID)
	}
	return nil
}

// TransitionStatus moves the invoice to status to when its stored status is
// one of from. The returned flag is true only for the call that changed the row.
func (r *GormInvoiceRepository) TransitionStatus(ctx context.Context, invoiceID uuid.UUID, to billing.InvoiceStatus, at time.Time, from ...billing.InvoiceStatus) (bool, error) {
	if len(from) == 0 {
		return false, shared.NewInvalidInputError("at least one source status is required")
	}

	updates := map[string]any{
		"status":     to,
		"version":    gorm.Expr("version + 1"),
		"updated_at": at,
	}
	switch to {
	case billing.InvoiceStatusSent:
		updates["sent_at"] = at
	case billing.InvoiceStatusPaid:
		updates["paid_at"] = at
	case billing.InvoiceStatusCancelled:
		updates["cancelled_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND status IN ?", invoiceID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete removes an invoice and its items
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.InvoiceItemModel{}, "invoice_id = ?", id).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("invoice", id)
	}
	return nil
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
