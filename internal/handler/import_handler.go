package handler

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/dto"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
	"github.com/fieldserve/payout-api/pkg/response"
)

// 25 MB covers a full year of job records with headroom.
const maxImportUploadBytes = 25 << 20

type importService interface {
	Enqueue(ctx context.Context, raw []byte, format dto.ImportFormat) (*dto.ImportStatus, error)
	Status(importID string) dto.ImportStatus
}

// ImportHandler accepts spreadsheet uploads and reports import progress.
type ImportHandler struct {
	service importService
}

// NewImportHandler constructs the handler.
func NewImportHandler(service importService) *ImportHandler {
	return &ImportHandler{service: service}
}

// Upload godoc
// @Summary Upload a job record spreadsheet
// @Description Accepts CSV, TSV or XLSX and imports rows asynchronously
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet file"
// @Param format formData string false "csv | tsv | xlsx (defaults to the file extension)"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /imports [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	if fileHeader.Size > maxImportUploadBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the upload size limit"))
		return
	}

	format := dto.ImportFormat(strings.ToLower(strings.TrimSpace(c.PostForm("format"))))
	if format == "" {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")
		format = dto.ImportFormat(ext)
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	status, err := h.service.Enqueue(c.Request.Context(), raw, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, status)
}

// Status godoc
// @Summary Import status
// @Tags Imports
// @Produce json
// @Param id path string true "Import ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /imports/{id} [get]
func (h *ImportHandler) Status(c *gin.Context) {
	status := h.service.Status(c.Param("id"))
	if status.State == dto.ImportStateNotFound {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "import not found"))
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
