package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReportRepository is a mock implementation of ReportRepository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) MonthlyRevenue(ctx context.Context, since time.Time) ([]report.MonthlyRevenue, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.MonthlyRevenue), args.Error(1)
}

func (m *MockReportRepository) Outstanding(ctx context.Context) (report.Outstanding, error) {
	args := m.Called(ctx)
	return args.Get(0).(report.Outstanding), args.Error(1)
}

func (m *MockReportRepository) StatusCounts(ctx context.Context, asOf time.Time) ([]report.StatusCount, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.StatusCount), args.Error(1)
}

func (m *MockReportRepository) TopCustomers(ctx context.Context, limit int) ([]report.CustomerRevenue, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.CustomerRevenue), args.Error(1)
}

// mapCache is a JSON round-tripping cache used to exercise ReportService
type mapCache struct {
	data    map[string][]byte
	failGet bool
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	if c.failGet {
		return false, errors.New("cache down")
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func newTestService(repo *MockReportRepository, cache ReportCache) *ReportService {
	svc := NewReportService(repo, cache, ReportServiceConfig{CacheTTL: time.Minute}, nil)
	svc.now = func() time.Time { return time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestReportService_MonthlyRevenue_UsesCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockReportRepository)
	cache := newMapCache()
	svc := newTestService(repo, cache)

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.On("MonthlyRevenue", ctx, since).Return([]report.MonthlyRevenue{
		{Year: 2026, Month: 5, Amount: decimal.RequireFromString("120.50")},
	}, nil).Once()

	first, err := svc.MonthlyRevenue(ctx, 2)
	require.NoError(t, err)
	second, err := svc.MonthlyRevenue(ctx, 2)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].Month, second[0].Month)
	assert.True(t, second[0].Amount.Equal(decimal.RequireFromString("120.50")))
	repo.AssertNumberOfCalls(t, "MonthlyRevenue", 1)
}

func TestReportService_Invalidate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockReportRepository)
	cache := newMapCache()
	svc := newTestService(repo, cache)

	repo.On("Outstanding", ctx).Return(report.Outstanding{InvoiceCount: 1, Balance: decimal.NewFromInt(10)}, nil).Twice()

	_, err := svc.Outstanding(ctx)
	require.NoError(t, err)

	handler := NewCacheInvalidationHandler(svc)
	assert.Contains(t, handler.EventTypes(), billing.EventTypeInvoicePaid)
	require.NoError(t, handler.Handle(ctx, nil))
	assert.Empty(t, cache.data)

	out, err := svc.Outstanding(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.InvoiceCount)
	repo.AssertNumberOfCalls(t, "Outstanding", 2)
}

func TestReportService_CacheFailureFallsBackToRepository(t *testing.T) {
	ctx := context.Background()
	repo := new(MockReportRepository)
	cache := newMapCache()
	cache.failGet = true
	svc := newTestService(repo, cache)

	repo.On("TopCustomers", ctx, 5).Return([]report.CustomerRevenue{{CustomerName: "Acme"}}, nil)

	top, err := svc.TopCustomers(ctx, 0)

	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Acme", top[0].CustomerName)
}

func TestReportService_WithoutCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockReportRepository)
	svc := newTestService(repo, nil)
	asOf := svc.now()

	repo.On("StatusCounts", ctx, asOf).Return([]report.StatusCount{
		{Status: billing.InvoiceStatusOverdue, Count: 3},
	}, nil)

	counts, err := svc.StatusCounts(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[0].Count)
	svc.Invalidate(ctx)
}

func TestReportService_Dashboard(t *testing.T) {
	ctx := context.Background()
	repo := new(MockReportRepository)
	svc := newTestService(repo, newMapCache())

	repo.On("MonthlyRevenue", ctx, mock.Anything).Return([]report.MonthlyRevenue{}, nil)
	repo.On("Outstanding", ctx).Return(report.Outstanding{Balance: decimal.NewFromInt(5)}, nil)
	repo.On("StatusCounts", ctx, mock.Anything).Return([]report.StatusCount{}, nil)
	repo.On("TopCustomers", ctx, 5).Return([]report.CustomerRevenue{}, nil)

	dashboard, err := svc.Dashboard(ctx)

	require.NoError(t, err)
	assert.True(t, dashboard.Outstanding.Balance.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, svc.now(), dashboard.GeneratedAt)
}

func TestReportService_RepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockReportRepository)
	svc := newTestService(repo, newMapCache())

	repo.On("MonthlyRevenue", ctx, mock.Anything).Return([]report.MonthlyRevenue{}, nil)
	repo.On("Outstanding", ctx).Return(report.Outstanding{}, errors.New("db down"))

	_, err := svc.Outstanding(ctx)
	assert.Error(t, err)

	_, err = svc.Dashboard(ctx)
	assert.Error(t, err)
}
