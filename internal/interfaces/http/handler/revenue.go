package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/estatehub/backend/internal/domain/revenue"
	"github.com/estatehub/backend/internal/infrastructure/export"
	"github.com/estatehub/backend/internal/interfaces/http/dto"
)

// RevenueService is the revenue aggregator as seen by the HTTP layer
type RevenueService interface {
	CalculateMonthlyRevenue(ctx context.Context, adminID uuid.UUID, month, year int) (*revenue.Result, error)
	StoreMonthlyRevenue(ctx context.Context, result *revenue.Result) (*revenue.MonthlyRecord, error)
	GetStoredRevenue(ctx context.Context, adminID uuid.UUID, year int, month *int) ([]revenue.MonthlyRecord, error)
	GetRevenueTrend(ctx context.Context, adminID uuid.UUID) ([]revenue.TrendPoint, error)
}

// RevenueHandler serves per-landlord revenue
type RevenueHandler struct {
	BaseHandler
	service RevenueService
}

// NewRevenueHandler creates a RevenueHandler
func NewRevenueHandler(service RevenueService) *RevenueHandler {
	return &RevenueHandler{service: service}
}

// Stored handles GET /landlords/:id/revenue?year=&month=
func (h *RevenueHandler) Stored(c *gin.Context) {
	adminID, ok := h.bindID(c)
	if !ok {
		return
	}
	var q dto.RevenueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	records, err := h.service.GetStoredRevenue(c.Request.Context(), adminID, q.Year, q.Month)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.ToMonthlyRevenueResponses(records))
}

// Calculate handles POST /landlords/:id/revenue/calculate. The result is
// stored unless the body sets "store": false.
func (h *RevenueHandler) Calculate(c *gin.Context) {
	adminID, ok := h.bindID(c)
	if !ok {
		return
	}
	var req dto.CalculateRevenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	result, err := h.service.CalculateMonthlyRevenue(ctx, adminID, req.Month, req.Year)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if req.Store == nil || *req.Store {
		if _, err := h.service.StoreMonthlyRevenue(ctx, result); err != nil {
			h.HandleDomainError(c, err)
			return
		}
	}
	h.Success(c, result)
}

// Trend handles GET /landlords/:id/revenue/trend
func (h *RevenueHandler) Trend(c *gin.Context) {
	adminID, ok := h.bindID(c)
	if !ok {
		return
	}
	points, err := h.service.GetRevenueTrend(c.Request.Context(), adminID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, points)
}

// Export handles GET /landlords/:id/revenue/export?year= and streams an
// xlsx workbook.
func (h *RevenueHandler) Export(c *gin.Context) {
	adminID, ok := h.bindID(c)
	if !ok {
		return
	}
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	records, err := h.service.GetStoredRevenue(c.Request.Context(), adminID, q.Year, nil)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	data, err := export.RevenueWorkbook(adminID, q.Year, records)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(adminID, q.Year)+`"`)
	c.Data(http.StatusOK, export.ContentType, data)
}
