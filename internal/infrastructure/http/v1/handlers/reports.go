package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventra/internal/core/apperror"
	"inventra/internal/domain/reports"
	"inventra/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetInventoryMetrics handles GET /reports/inventory-metrics
func (h *ReportsHandler) GetInventoryMetrics(c *gin.Context) {
	var query dto.InventoryMetricsQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := query.ToFilter()
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		h.Error(c, apperror.NewValidation("fromDate and toDate must be RFC3339 or YYYY-MM-DD dates"))
		return
	}

	report, err := h.service.GetInventoryMetrics(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetDebtors handles GET /reports/debtors
func (h *ReportsHandler) GetDebtors(c *gin.Context) {
	var query dto.DebtorsQuery
	if !h.BindQuery(c, &query) {
		return
	}

	report, err := h.service.GetDebtors(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// RegisterRoutes registers report routes.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/inventory-metrics", h.GetInventoryMetrics)
	rg.GET("/debtors", h.GetDebtors)
}
