package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo    catalog.ProductRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo: productRepo,
		logger:      logger.Named("product_service"),
	}
}

// SetEventPublisher sets the event publisher for product events
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	stock := req.StockQuantity
	if !req.TrackInventory {
		stock = nil
	} else if stock == nil {
		zero := 0
		stock = &zero
	}

	product, err := catalog.NewProduct(req.Name, req.Description, req.UnitPrice, req.TrackInventory, stock)
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
	)
	s.publish(ctx, product)

	response := ToProductResponse(product)
	return &response, nil
}

// GetByID returns a product regardless of its status
func (s *ProductService) GetByID(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// GetActiveProduct returns an active product. Inactive products are
// reported as not found.
func (s *ProductService) GetActiveProduct(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindActiveByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// List returns a page of products
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]any),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.TrackInventory != nil {
		domainFilter.Filters["track_inventory"] = *filter.TrackInventory
	}

	products, total, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToProductResponses(products), total, nil
}

// Update changes name, description or price. Existing invoice items keep
// the price they were created with.
func (s *ProductService) Update(ctx context.Context, productID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil {
		name := product.Name
		if req.Name != nil {
			name = *req.Name
		}
		description := product.Description
		if req.Description != nil {
			description = *req.Description
		}
		if err := product.Update(name, description); err != nil {
			return nil, err
		}
	}
	if req.UnitPrice != nil && !req.UnitPrice.Equal(product.UnitPrice) {
		if err := product.ChangePrice(*req.UnitPrice); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	response := ToProductResponse(product)
	return &response, nil
}

// AdjustStock sets the stock level of a tracked product. The row is locked
// for the write so a concurrent settlement is serialized against it.
func (s *ProductService) AdjustStock(ctx context.Context, productID uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	if req.Quantity < 0 {
		return nil, shared.NewInvalidInputError("stock quantity cannot be negative")
	}
	product, err := s.productRepo.SetStock(ctx, productID, req.Quantity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product stock adjusted",
		zap.String("product_id", product.ID.String()),
		zap.Int("stock_quantity", product.Stock()),
	)

	response := ToProductResponse(product)
	return &response, nil
}

// DecreaseStock takes units out of a tracked product's stock. The stock is
// left unchanged when it does not cover the quantity.
func (s *ProductService) DecreaseStock(ctx context.Context, productID uuid.UUID, req DecreaseStockRequest) (*ProductResponse, error) {
	if req.Quantity <= 0 {
		return nil, shared.NewInvalidInputError("quantity must be positive")
	}
	product, err := s.productRepo.DecreaseStock(ctx, productID, req.Quantity)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	response := ToProductResponse(product)
	return &response, nil
}

// Deactivate soft-deletes a product
func (s *ProductService) Deactivate(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := product.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product deactivated", zap.String("product_id", product.ID.String()))
	s.publish(ctx, product)

	response := ToProductResponse(product)
	return &response, nil
}

// Activate restores an inactive product
func (s *ProductService) Activate(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := product.Activate(); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	events := product.GetDomainEvents()
	product.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish product events",
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
	}
}
