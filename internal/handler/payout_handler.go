package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
	"github.com/fieldserve/payout-api/pkg/response"
)

type payoutService interface {
	Statement(ctx context.Context, technicianCode string, filter models.JobFilter) (*dto.TechnicianPayout, error)
	Statements(ctx context.Context, filter models.JobFilter, codes []string) ([]dto.TechnicianPayout, error)
}

type technicianCodeLister interface {
	TechnicianCodes(ctx context.Context, filter models.JobFilter) ([]string, error)
}

// PayoutHandler exposes commission statement endpoints.
type PayoutHandler struct {
	payouts payoutService
	codes   technicianCodeLister
}

// NewPayoutHandler constructs the handler.
func NewPayoutHandler(payouts payoutService, codes technicianCodeLister) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, codes: codes}
}

// Statement godoc
// @Summary Payout statement for one technician
// @Tags Payouts
// @Produce json
// @Param code path string true "Technician code"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /payouts/{code} [get]
func (h *PayoutHandler) Statement(c *gin.Context) {
	filter, err := jobFilterFromQuery(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}

	payout, err := h.payouts.Statement(c.Request.Context(), c.Param("code"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payout, nil)
}

// Statements godoc
// @Summary Payout statements for several technicians
// @Description Defaults to every technician with recorded jobs when codes is empty
// @Tags Payouts
// @Produce json
// @Param codes query string false "Comma-separated technician codes"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /payouts [get]
func (h *PayoutHandler) Statements(c *gin.Context) {
	filter, err := jobFilterFromQuery(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}

	var codes []string
	if raw := strings.TrimSpace(c.Query("codes")); raw != "" {
		for _, code := range strings.Split(raw, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
	} else if h.codes != nil {
		codes, err = h.codes.TechnicianCodes(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
	}
	if len(codes) == 0 {
		response.JSON(c, http.StatusOK, []dto.TechnicianPayout{}, nil)
		return
	}

	payouts, err := h.payouts.Statements(c.Request.Context(), filter, codes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payouts, nil)
}
