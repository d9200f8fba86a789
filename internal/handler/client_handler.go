package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/middleware"
	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
	"github.com/fieldserve/payout-api/pkg/response"
)

type clientService interface {
	TopClients(ctx context.Context, filter models.JobFilter, query dto.ClientQuery) ([]dto.ClientSummary, bool, error)
}

// ClientHandler exposes the per-client rollup.
type ClientHandler struct {
	service clientService
}

// NewClientHandler constructs the handler.
func NewClientHandler(service clientService) *ClientHandler {
	return &ClientHandler{service: service}
}

var clientSortKeys = map[string]dto.ClientSortKey{
	"totalSales":    dto.ClientSortTotalSales,
	"totalJobs":     dto.ClientSortTotalJobs,
	"avgSalePerJob": dto.ClientSortAvgSalePerJob,
	"lastJobDate":   dto.ClientSortLastJobDate,
}

// TopClients godoc
// @Summary Top clients rollup
// @Tags Clients
// @Produce json
// @Param technician query string false "Technician code"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Param sortBy query string false "totalSales | totalJobs | avgSalePerJob | lastJobDate"
// @Param order query string false "asc | desc"
// @Param limit query int false "Max clients returned"
// @Success 200 {object} response.Envelope
// @Router /clients/top [get]
func (h *ClientHandler) TopClients(c *gin.Context) {
	filter, err := jobFilterFromQuery(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}

	query := dto.ClientQuery{
		Descending: !strings.EqualFold(c.Query("order"), "asc"),
		Limit:      intQuery(c, "limit", 0),
	}
	if raw := strings.TrimSpace(c.Query("sortBy")); raw != "" {
		key, ok := clientSortKeys[raw]
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown sortBy key"))
			return
		}
		query.SortBy = key
	}

	start := time.Now()
	clients, cacheHit, err := h.service.TopClients(c.Request.Context(), filter, query)
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
	response.JSON(c, http.StatusOK, clients, nil, meta)
}
