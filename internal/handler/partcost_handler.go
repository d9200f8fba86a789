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

type partCostService interface {
	Submit(ctx context.Context, req dto.CreatePartCostRequest, technicianID string) (*models.PartCostRequest, error)
	List(ctx context.Context, query dto.PartCostQuery, callerID string, callerRole models.Role) ([]models.PartCostRequest, error)
	Get(ctx context.Context, id, callerID string, callerRole models.Role) (*models.PartCostRequest, error)
	Review(ctx context.Context, id string, req dto.ReviewPartCostRequest, adminID string) (*models.PartCostRequest, error)
}

// PartCostHandler exposes the parts-cost correction workflow.
type PartCostHandler struct {
	service partCostService
}

// NewPartCostHandler constructs the handler.
func NewPartCostHandler(service partCostService) *PartCostHandler {
	return &PartCostHandler{service: service}
}

// Submit godoc
// @Summary Submit a parts-cost correction
// @Tags PartCosts
// @Accept json
// @Produce json
// @Param payload body dto.CreatePartCostRequest true "Correction payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /part-costs [post]
func (h *PartCostHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreatePartCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid part cost payload"))
		return
	}

	request, err := h.service.Submit(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List parts-cost requests
// @Description Technicians see their own requests, admins see all
// @Tags PartCosts
// @Produce json
// @Param status query string false "Comma-separated statuses (PENDING, APPROVED, REJECTED)"
// @Param ordered_by query string false "TECHNICIAN | OFFICE"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /part-costs [get]
func (h *PartCostHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query := dto.PartCostQuery{
		OrderedBy: models.PartsOrderedBy(strings.ToUpper(strings.TrimSpace(c.Query("ordered_by")))),
		Limit:     intQuery(c, "limit", 0),
		Offset:    intQuery(c, "offset", 0),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		for _, status := range strings.Split(raw, ",") {
			if status = strings.ToUpper(strings.TrimSpace(status)); status != "" {
				query.Status = append(query.Status, models.PartCostStatus(status))
			}
		}
	}

	requests, err := h.service.List(c.Request.Context(), query, claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Fetch one parts-cost request
// @Tags PartCosts
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /part-costs/{id} [get]
func (h *PartCostHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Review godoc
// @Summary Approve or reject a pending request
// @Tags PartCosts
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewPartCostRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /part-costs/{id}/review [post]
func (h *PartCostHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewPartCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	request, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
