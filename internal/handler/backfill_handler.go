package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/dto"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
	"github.com/fieldserve/payout-api/pkg/response"
)

type backfillService interface {
	Run(ctx context.Context, runBy string) (*dto.BackfillResult, error)
}

// BackfillHandler triggers invoice and zip backfills.
type BackfillHandler struct {
	service backfillService
}

// NewBackfillHandler constructs the handler.
func NewBackfillHandler(service backfillService) *BackfillHandler {
	return &BackfillHandler{service: service}
}

// Run godoc
// @Summary Backfill missing invoice numbers and zip codes
// @Description Safe to run repeatedly; already-filled rows are skipped
// @Tags Backfill
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /backfill [post]
func (h *BackfillHandler) Run(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.Run(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
