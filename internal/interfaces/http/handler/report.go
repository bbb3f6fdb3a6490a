package handler

import (
	"github.com/gin-gonic/gin"
	reportapp "github.com/invoicing/backend/internal/application/report"
)

// ReportHandler serves the read-only reports
type ReportHandler struct {
	BaseHandler
	reportService *reportapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reportapp.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// RegisterRoutes registers the report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	reports.GET("/dashboard", h.Dashboard)
	reports.GET("/monthly-revenue", h.MonthlyRevenue)
	reports.GET("/outstanding", h.Outstanding)
	reports.GET("/status-counts", h.StatusCounts)
	reports.GET("/top-customers", h.TopCustomers)
}

type monthlyRevenueQuery struct {
	Years int `form:"years" binding:"omitempty,min=1,max=10"`
}

type topCustomersQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// Dashboard handles GET /reports/dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.reportService.Dashboard(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}

// MonthlyRevenue handles GET /reports/monthly-revenue
func (h *ReportHandler) MonthlyRevenue(c *gin.Context) {
	var query monthlyRevenueQuery
	if !h.bindQuery(c, &query) {
		return
	}
	rows, err := h.reportService.MonthlyRevenue(c.Request.Context(), query.Years)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rows)
}

// Outstanding handles GET /reports/outstanding
func (h *ReportHandler) Outstanding(c *gin.Context) {
	outstanding, err := h.reportService.Outstanding(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outstanding)
}

// StatusCounts handles GET /reports/status-counts
func (h *ReportHandler) StatusCounts(c *gin.Context) {
	counts, err := h.reportService.StatusCounts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counts)
}

// TopCustomers handles GET /reports/top-customers
func (h *ReportHandler) TopCustomers(c *gin.Context) {
	var query topCustomersQuery
	if !h.bindQuery(c, &query) {
		return
	}
	rows, err := h.reportService.TopCustomers(c.Request.Context(), query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rows)
}
