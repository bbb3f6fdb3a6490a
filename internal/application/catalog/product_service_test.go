package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/catalog"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindActiveByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) SetStock(ctx context.Context, id uuid.UUID, quantity int) (*catalog.Product, error) {
	args := m.Called(ctx, id, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) DecreaseStock(ctx context.Context, id uuid.UUID, quantity int) (*catalog.Product, error) {
	args := m.Called(ctx, id, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func createTestProduct(t *testing.T, price string, stock *int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("Test Product", "A product", decimal.RequireFromString(price), stock != nil, stock)
	require.NoError(t, err)
	p.ClearDomainEvents()
	return p
}

func intPtr(v int) *int { return &v }

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates tracked product with initial stock", func(t *testing.T) {
		repo := new(MockProductRepository)
		publisher := new(MockEventPublisher)
		svc := NewProductService(repo, nil)
		svc.SetEventPublisher(publisher)

		repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)
		publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == catalog.EventTypeProductCreated
		})).Return(nil)

		resp, err := svc.Create(ctx, CreateProductRequest{
			Name:           "Paper",
			UnitPrice:      decimal.RequireFromString("4.999"),
			TrackInventory: true,
			StockQuantity:  intPtr(12),
		})

		require.NoError(t, err)
		assert.Equal(t, "Paper", resp.Name)
		assert.True(t, resp.UnitPrice.Equal(decimal.RequireFromString("5.00")))
		require.NotNil(t, resp.StockQuantity)
		assert.Equal(t, 12, *resp.StockQuantity)
		assert.Equal(t, "active", resp.Status)
		publisher.AssertExpectations(t)
	})

	t.Run("tracked product without stock starts at zero", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)
		repo.On("Save", ctx, mock.Anything).Return(nil)

		resp, err := svc.Create(ctx, CreateProductRequest{Name: "Ink", UnitPrice: decimal.NewFromInt(3), TrackInventory: true})

		require.NoError(t, err)
		require.NotNil(t, resp.StockQuantity)
		assert.Equal(t, 0, *resp.StockQuantity)
	})

	t.Run("untracked product ignores stock", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)
		repo.On("Save", ctx, mock.Anything).Return(nil)

		resp, err := svc.Create(ctx, CreateProductRequest{Name: "Consulting", UnitPrice: decimal.NewFromInt(90), StockQuantity: intPtr(4)})

		require.NoError(t, err)
		assert.Nil(t, resp.StockQuantity)
		assert.False(t, resp.TrackInventory)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)

		_, err := svc.Create(ctx, CreateProductRequest{Name: "Bad", UnitPrice: decimal.NewFromInt(-1)})

		require.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestProductService_GetActiveProduct(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	svc := NewProductService(repo, nil)
	id := uuid.New()

	repo.On("FindActiveByID", ctx, id).Return(nil, shared.NewNotFoundError("product", id))

	_, err := svc.GetActiveProduct(ctx, id)

	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	svc := NewProductService(repo, nil)
	tracked := true
	product := createTestProduct(t, "1.00", intPtr(1))

	repo.On("FindAll", ctx, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Search == "pap" && f.Filters["status"] == "active" && f.Filters["track_inventory"] == true
	})).Return([]catalog.Product{*product}, int64(1), nil)

	items, total, err := svc.List(ctx, ProductListFilter{Search: "pap", Status: "active", TrackInventory: &tracked})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	publisher := new(MockEventPublisher)
	svc := NewProductService(repo, nil)
	svc.SetEventPublisher(publisher)
	product := createTestProduct(t, "10.00", nil)
	newPrice := decimal.RequireFromString("12.50")
	newName := "Renamed"

	repo.On("FindByID", ctx, product.ID).Return(product, nil)
	repo.On("Save", ctx, product).Return(nil)
	publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == catalog.EventTypeProductPriceChanged
	})).Return(nil)

	resp, err := svc.Update(ctx, product.ID, UpdateProductRequest{Name: &newName, UnitPrice: &newPrice})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", resp.Name)
	assert.Equal(t, "A product", resp.Description)
	assert.True(t, resp.UnitPrice.Equal(newPrice))
	publisher.AssertExpectations(t)
}

func TestProductService_AdjustStock(t *testing.T) {
	ctx := context.Background()

	t.Run("sets stock through the locked repository write", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)
		product := createTestProduct(t, "1.00", intPtr(40))
		repo.On("SetStock", ctx, product.ID, 40).Return(product, nil)

		resp, err := svc.AdjustStock(ctx, product.ID, AdjustStockRequest{Quantity: 40})

		require.NoError(t, err)
		assert.Equal(t, 40, *resp.StockQuantity)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("rejects untracked product", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)
		productID := uuid.New()
		repo.On("SetStock", ctx, productID, 1).
			Return(nil, shared.NewInvalidStateError("product does not track inventory", nil))

		_, err := svc.AdjustStock(ctx, productID, AdjustStockRequest{Quantity: 1})

		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)

		_, err := svc.AdjustStock(ctx, uuid.New(), AdjustStockRequest{Quantity: -1})

		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		repo.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProductService_DecreaseStock(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non positive quantity", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)

		_, err := svc.DecreaseStock(ctx, uuid.New(), DecreaseStockRequest{Quantity: 0})

		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		repo.AssertNotCalled(t, "DecreaseStock", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("propagates insufficient stock", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)
		id := uuid.New()
		repo.On("DecreaseStock", ctx, id, 6).Return(nil, shared.NewInsufficientStockError(id, 5, 6))

		_, err := svc.DecreaseStock(ctx, id, DecreaseStockRequest{Quantity: 6})

		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})

	t.Run("returns remaining stock", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil)
		product := createTestProduct(t, "1.00", intPtr(5))
		require.NoError(t, product.DecreaseStock(5))
		repo.On("DecreaseStock", ctx, product.ID, 5).Return(product, nil)

		resp, err := svc.DecreaseStock(ctx, product.ID, DecreaseStockRequest{Quantity: 5})

		require.NoError(t, err)
		assert.Equal(t, 0, *resp.StockQuantity)
	})
}

func TestProductService_Deactivate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	svc := NewProductService(repo, nil)
	product := createTestProduct(t, "1.00", nil)

	repo.On("FindByID", ctx, product.ID).Return(product, nil)
	repo.On("Save", ctx, product).Return(nil)

	resp, err := svc.Deactivate(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "inactive", resp.Status)

	_, err = svc.Deactivate(ctx, product.ID)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

type recordingNotifier struct {
	notifications []LowStockNotification
}

func (n *recordingNotifier) NotifyLowStock(_ context.Context, notification LowStockNotification) error {
	n.notifications = append(n.notifications, notification)
	return nil
}

func TestLowStockHandler(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	notifier := &recordingNotifier{}
	handler := NewLowStockHandler(2, zap.New(core)).WithNotifier(notifier)

	assert.Equal(t, []string{catalog.EventTypeProductStockDecreased}, handler.EventTypes())

	product := createTestProduct(t, "1.00", intPtr(10))
	require.NoError(t, product.DecreaseStock(3))
	require.NoError(t, handler.Handle(ctx, catalog.NewProductStockDecreasedEvent(product, 3)))
	assert.Empty(t, notifier.notifications)

	require.NoError(t, product.DecreaseStock(6))
	require.NoError(t, handler.Handle(ctx, catalog.NewProductStockDecreasedEvent(product, 6)))
	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, 1, notifier.notifications[0].Remaining)
	assert.Equal(t, 1, logs.FilterMessage("Product stock low").Len())

	err := handler.Handle(ctx, catalog.NewProductDeactivatedEvent(product))
	assert.Error(t, err)
}
