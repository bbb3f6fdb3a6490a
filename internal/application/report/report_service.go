package report

import (
	"context"
	"fmt"
	"time"

	"github.com/invoicing/backend/internal/domain/billing"
	"github.com/invoicing/backend/internal/domain/finance"
	"github.com/invoicing/backend/internal/domain/report"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Cache keys
const (
	keyMonthlyRevenue = "report:monthly_revenue:%d"
	keyOutstanding    = "report:outstanding"
	keyStatusCounts   = "report:status_counts:%s"
	keyTopCustomers   = "report:top_customers:%d"
)

// ReportCache stores serialized report results for a limited time
type ReportCache interface {
	// Get loads the cached value for key into dest and reports whether it was found
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key for ttl
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}

// ReportServiceConfig holds report settings
type ReportServiceConfig struct {
	CacheTTL        time.Duration
	RevenueYears    int
	TopCustomersMax int
}

// ReportService serves the read-only invoicing reports. Results are cached
// and invalidated whenever an invoice or payment changes.
type ReportService struct {
	repo   report.ReportRepository
	cache  ReportCache
	cfg    ReportServiceConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService creates a new ReportService. cache may be nil.
func NewReportService(repo report.ReportRepository, cache ReportCache, cfg ReportServiceConfig, logger *zap.Logger) *ReportService {
	if cfg.RevenueYears < 1 {
		cfg.RevenueYears = 2
	}
	if cfg.TopCustomersMax < 1 {
		cfg.TopCustomersMax = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:   repo,
		cache:  cache,
		cfg:    cfg,
		logger: logger.Named("report_service"),
		now:    time.Now,
	}
}

// MonthlyRevenue returns revenue per month for the last years calendar
// years including the current one
func (s *ReportService) MonthlyRevenue(ctx context.Context, years int) ([]report.MonthlyRevenue, error) {
	if years < 1 {
		years = s.cfg.RevenueYears
	}
	since := time.Date(s.now().UTC().Year()-years+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	var result []report.MonthlyRevenue
	err := s.cached(ctx, fmt.Sprintf(keyMonthlyRevenue, years), &result, func() error {
		rows, err := s.repo.MonthlyRevenue(ctx, since)
		result = rows
		return err
	})
	return result, err
}

// Outstanding returns the balance still owed on open invoices
func (s *ReportService) Outstanding(ctx context.Context) (*report.Outstanding, error) {
	var result report.Outstanding
	err := s.cached(ctx, keyOutstanding, &result, func() error {
		row, err := s.repo.Outstanding(ctx)
		result = row
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// StatusCounts counts invoices by effective status, OVERDUE included
func (s *ReportService) StatusCounts(ctx context.Context) ([]report.StatusCount, error) {
	asOf := s.now()

	var result []report.StatusCount
	err := s.cached(ctx, fmt.Sprintf(keyStatusCounts, asOf.UTC().Format("2006-01-02")), &result, func() error {
		rows, err := s.repo.StatusCounts(ctx, asOf)
		result = rows
		return err
	})
	return result, err
}

// TopCustomers returns the customers who paid the most
func (s *ReportService) TopCustomers(ctx context.Context, limit int) ([]report.CustomerRevenue, error) {
	if limit < 1 || limit > 50 {
		limit = s.cfg.TopCustomersMax
	}

	var result []report.CustomerRevenue
	err := s.cached(ctx, fmt.Sprintf(keyTopCustomers, limit), &result, func() error {
		rows, err := s.repo.TopCustomers(ctx, limit)
		result = rows
		return err
	})
	return result, err
}

// Dashboard assembles every report for the overview page
func (s *ReportService) Dashboard(ctx context.Context) (*report.Dashboard, error) {
	revenue, err := s.MonthlyRevenue(ctx, s.cfg.RevenueYears)
	if err != nil {
		return nil, err
	}
	outstanding, err := s.Outstanding(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.TopCustomers(ctx, s.cfg.TopCustomersMax)
	if err != nil {
		return nil, err
	}

	return &report.Dashboard{
		GeneratedAt:    s.now(),
		MonthlyRevenue: revenue,
		Outstanding:    *outstanding,
		StatusCounts:   counts,
		TopCustomers:   top,
	}, nil
}

// Invalidate drops every cached report
func (s *ReportService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, "report:"); err != nil {
		s.logger.Warn("Failed to invalidate report cache", zap.Error(err))
	}
}

// cached serves dest from the cache or fills it with load and stores it.
// Cache failures are logged and fall back to the repository.
func (s *ReportService) cached(ctx context.Context, key string, dest any, load func() error) error {
	if s.cache != nil {
		found, err := s.cache.Get(ctx, key, dest)
		if err != nil {
			s.logger.Warn("Report cache read failed", zap.String("key", key), zap.Error(err))
		} else if found {
			return nil
		}
	}

	if err := load(); err != nil {
		return err
	}

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if err := s.cache.Set(ctx, key, dest, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("Report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// CacheInvalidationHandler drops cached reports when invoices or payments change
type CacheInvalidationHandler struct {
	service *ReportService
}

// NewCacheInvalidationHandler creates a handler that invalidates the report cache
func NewCacheInvalidationHandler(service *ReportService) *CacheInvalidationHandler {
	return &CacheInvalidationHandler{service: service}
}

// EventTypes returns the event types this handler is interested in
func (h *CacheInvalidationHandler) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceCreated,
		billing.EventTypeInvoiceSent,
		billing.EventTypeInvoicePaid,
		billing.EventTypeInvoiceCancelled,
		finance.EventTypePaymentRecorded,
	}
}

// Handle invalidates the cache
func (h *CacheInvalidationHandler) Handle(ctx context.Context, _ shared.DomainEvent) error {
	h.service.Invalidate(ctx)
	return nil
}

var _ shared.EventHandler = (*CacheInvalidationHandler)(nil)
