package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
	"github.com/fieldserve/payout-api/pkg/response"
)

type jobService interface {
	List(ctx context.Context, filter models.JobFilter, page, pageSize int) ([]models.JobRecord, *models.Pagination, error)
	TechnicianCodes(ctx context.Context, filter models.JobFilter) ([]string, error)
}

// JobHandler exposes raw job record listings.
type JobHandler struct {
	service jobService
}

// NewJobHandler constructs the handler.
func NewJobHandler(service jobService) *JobHandler {
	return &JobHandler{service: service}
}

// List godoc
// @Summary List job records
// @Tags Jobs
// @Produce json
// @Param technician query string false "Technician code"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	filter, err := jobFilterFromQuery(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}

	records, pagination, err := h.service.List(c.Request.Context(), filter, intQuery(c, "page", 1), intQuery(c, "pageSize", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// TechnicianCodes godoc
// @Summary Distinct technician codes with recorded jobs
// @Tags Jobs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /jobs/technician-codes [get]
func (h *JobHandler) TechnicianCodes(c *gin.Context) {
	filter, err := jobFilterFromQuery(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}

	codes, err := h.service.TechnicianCodes(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, codes, nil)
}
