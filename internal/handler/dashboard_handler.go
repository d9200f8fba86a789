package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/middleware"
	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
	"github.com/fieldserve/payout-api/pkg/response"
)

type dashboardService interface {
	Overview(ctx context.Context, filter models.JobFilter) (*dto.DashboardMetrics, bool, error)
}

// DashboardHandler wires dashboard aggregation to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Overview godoc
// @Summary Dashboard metrics overview
// @Tags Dashboard
// @Produce json
// @Param technician query string false "Technician code"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	filter, err := jobFilterFromQuery(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}

	start := time.Now()
	metrics, cacheHit, err := h.service.Overview(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, metrics, nil, meta)
}
