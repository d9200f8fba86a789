package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/models"
	"github.com/fieldserve/payout-api/internal/service"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
	"github.com/fieldserve/payout-api/pkg/response"
)

// TechnicianHandler manages technician accounts.
type TechnicianHandler struct {
	service *service.TechnicianService
}

// NewTechnicianHandler constructs the handler.
func NewTechnicianHandler(service *service.TechnicianService) *TechnicianHandler {
	return &TechnicianHandler{service: service}
}

// List godoc
// @Summary List technician accounts
// @Tags Technicians
// @Produce json
// @Param role query string false "ADMIN | TECHNICIAN"
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Name, email or code search"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /technicians [get]
func (h *TechnicianHandler) List(c *gin.Context) {
	filter := models.TechnicianFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      intQuery(c, "page", 1),
		PageSize:  intQuery(c, "pageSize", 20),
		SortBy:    strings.TrimSpace(c.Query("sortBy")),
		SortOrder: strings.TrimSpace(c.Query("sortOrder")),
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("role"))); raw != "" {
		role := models.Role(raw)
		filter.Role = &role
	}
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be true or false"))
			return
		}
		filter.Active = &active
	}

	technicians, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, technicians, pagination)
}

// Get godoc
// @Summary Fetch one technician account
// @Tags Technicians
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id} [get]
func (h *TechnicianHandler) Get(c *gin.Context) {
	technician, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technician, nil)
}

// Create godoc
// @Summary Create a technician account
// @Tags Technicians
// @Accept json
// @Produce json
// @Param payload body service.CreateTechnicianRequest true "Account payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /technicians [post]
func (h *TechnicianHandler) Create(c *gin.Context) {
	var req service.CreateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid technician payload"))
		return
	}

	technician, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, technician)
}

// Update godoc
// @Summary Update a technician account
// @Tags Technicians
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param payload body service.UpdateTechnicianRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id} [put]
func (h *TechnicianHandler) Update(c *gin.Context) {
	var req service.UpdateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid technician payload"))
		return
	}

	technician, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technician, nil)
}

// Deactivate godoc
// @Summary Deactivate a technician account
// @Tags Technicians
// @Produce json
// @Param id path string true "Account ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id} [delete]
func (h *TechnicianHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
