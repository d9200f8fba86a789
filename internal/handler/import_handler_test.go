package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/payout-api/internal/dto"
)

type fakeImportSrv struct {
	status     *dto.ImportStatus
	err        error
	lastFormat dto.ImportFormat
	lastRaw    []byte
	statusResp dto.ImportStatus
}

func (f *fakeImportSrv) Enqueue(_ context.Context, raw []byte, format dto.ImportFormat) (*dto.ImportStatus, error) {
	f.lastRaw = raw
	f.lastFormat = format
	return f.status, f.err
}

func (f *fakeImportSrv) Status(string) dto.ImportStatus {
	return f.statusResp
}

func multipartUpload(t *testing.T, filename, contents string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(contents))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestImportHandlerUploadInfersFormatFromExtension(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeImportSrv{status: &dto.ImportStatus{ImportID: "imp-1", State: dto.ImportStateQueued}}
	handler := NewImportHandler(service)

	body, contentType := multipartUpload(t, "jobs.tsv", "customer_name\tAcme\n")
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/imports", body)
	c.Request.Header.Set("Content-Type", contentType)

	handler.Upload(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, dto.ImportFormatTSV, service.lastFormat)
	assert.NotEmpty(t, service.lastRaw)
}

func TestImportHandlerUploadRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewImportHandler(&fakeImportSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/imports", nil)

	handler.Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewImportHandler(&fakeImportSrv{
		statusResp: dto.ImportStatus{ImportID: "missing", State: dto.ImportStateNotFound},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/imports/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Status(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportHandlerStatusFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewImportHandler(&fakeImportSrv{
		statusResp: dto.ImportStatus{ImportID: "imp-1", State: dto.ImportStateDone},
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/imports/imp-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "imp-1"}}

	handler.Status(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
