package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name           string          `json:"name" binding:"required,min=1,max=200"`
	Description    string          `json:"description" binding:"max=2000"`
	UnitPrice      decimal.Decimal `json:"unit_price" binding:"decimal_gte0"`
	TrackInventory bool            `json:"track_inventory"`
	StockQuantity  *int            `json:"stock_quantity" binding:"omitempty,min=0"`
}

// UpdateProductRequest represents a request to update a product.
// Nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

// AdjustStockRequest sets the stock level of a tracked product
type AdjustStockRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// DecreaseStockRequest takes units out of stock
type DecreaseStockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// ProductListFilter represents filter options for product list
type ProductListFilter struct {
	Search         string `form:"search"`
	Status         string `form:"status" binding:"omitempty,oneof=active inactive"`
	TrackInventory *bool  `form:"track_inventory"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string `form:"order_by"`
	OrderDir       string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TrackInventory bool            `json:"track_inventory"`
	StockQuantity  *int            `json:"stock_quantity,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// ToProductResponse converts a domain product to a response
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		UnitPrice:      p.UnitPrice,
		TrackInventory: p.TrackInventory,
		StockQuantity:  p.StockQuantity,
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Version:        p.Version,
	}
}

// ToProductResponses converts a slice of products to responses
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}
