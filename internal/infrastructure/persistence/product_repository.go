package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "product", id)
	}
	return model.ToDomain(), nil
}

// FindActiveByID finds an active product. Inactive products are reported as not found.
func (r *GormProductRepository) FindActiveByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, catalog.ProductStatusActive).
		First(&model).Error; err != nil {
		return nil, translateError(err, "product", id)
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple products by their IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}

	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return productsToDomain(rows), nil
}

// FindAll finds all products matching the filter along with the total count
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.ProductModel{})

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "track_inventory":
			query = query.Where("track_inventory = ?", value)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ProductModel
	if err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, ProductSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return productsToDomain(rows), total, nil
}

// Save inserts a new product or writes the descriptive columns of an
// existing one. Inventory tracking and stock_quantity are never written for
// an existing row, so a stale copy cannot undo a concurrent stock change;
// stock moves only through SetStock and DecreaseStock.
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)

	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"name":        model.Name,
			"description": model.Description,
			"unit_price":  model.UnitPrice,
			"status":      model.Status,
			"version":     gorm.Expr("version + 1"),
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "product", product.ID)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).Create(model).Error, "product", product.ID)
}

// SetStock locks the product row and overwrites the stock level of a
// tracked product. Only stock_quantity, version and updated_at are written.
func (r *GormProductRepository) SetStock(ctx context.Context, id uuid.UUID, quantity int) (*catalog.Product, error) {
	var product *catalog.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.ProductModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error; err != nil {
			return translateError(err, "product", id)
		}

		product = model.ToDomain()
		if err := product.AdjustStock(quantity); err != nil {
			return err
		}

		return tx.Model(&models.ProductModel{}).
			Where("id = ? AND track_inventory = ?", id, true).
			Updates(map[string]any{
				"stock_quantity": quantity,
				"version":        gorm.Expr("version + 1"),
				"updated_at":     product.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DecreaseStock locks the product row and takes quantity units out of stock.
// The UPDATE is guarded on stock_quantity >= quantity so that the stored
// stock can never go negative, even without the row lock.
func (r *GormProductRepository) DecreaseStock(ctx context.Context, id uuid.UUID, quantity int) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "product", id)
	}

	product := model.ToDomain()
	if err := product.DecreaseStock(quantity); err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ? AND track_inventory = ? AND stock_quantity >= ?", id, true, quantity).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, shared.NewInsufficientStockError(id, model.ToDomain().Stock(), quantity)
	}

	product.IncrementVersion()
	return product, nil
}

func productsToDomain(rows []models.ProductModel) []catalog.Product {
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
