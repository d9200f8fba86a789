package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/middleware"
	"github.com/fieldserve/payout-api/internal/models"
)

type fakePartCostSrv struct {
	request    *models.PartCostRequest
	err        error
	lastCaller string
	lastRole   models.Role
	lastQuery  dto.PartCostQuery
}

func (f *fakePartCostSrv) Submit(_ context.Context, _ dto.CreatePartCostRequest, technicianID string) (*models.PartCostRequest, error) {
	f.lastCaller = technicianID
	return f.request, f.err
}

func (f *fakePartCostSrv) List(_ context.Context, query dto.PartCostQuery, callerID string, callerRole models.Role) ([]models.PartCostRequest, error) {
	f.lastQuery = query
	f.lastCaller = callerID
	f.lastRole = callerRole
	return nil, f.err
}

func (f *fakePartCostSrv) Get(_ context.Context, _, callerID string, callerRole models.Role) (*models.PartCostRequest, error) {
	f.lastCaller = callerID
	f.lastRole = callerRole
	return f.request, f.err
}

func (f *fakePartCostSrv) Review(_ context.Context, _ string, _ dto.ReviewPartCostRequest, adminID string) (*models.PartCostRequest, error) {
	f.lastCaller = adminID
	return f.request, f.err
}

func authedContext(rec *httptest.ResponseRecorder, claims *models.JWTClaims) *gin.Context {
	c, _ := gin.CreateTestContext(rec)
	c.Set(middleware.ContextUserKey, claims)
	return c
}

func TestPartCostHandlerSubmitRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPartCostHandler(&fakePartCostSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/part-costs", nil)

	handler.Submit(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPartCostHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakePartCostSrv{request: &models.PartCostRequest{ID: "req-1"}}
	handler := NewPartCostHandler(service)

	body := bytes.NewBufferString(`{"job_invoice_number":"10001","requested_parts_cost":55,"notes":"receipt","parts_ordered_by":"TECHNICIAN"}`)
	rec := httptest.NewRecorder()
	c := authedContext(rec, &models.JWTClaims{UserID: "tech-1", Role: models.RoleTechnician})
	c.Request = httptest.NewRequest(http.MethodPost, "/part-costs", body)
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "tech-1", service.lastCaller)
}

func TestPartCostHandlerListParsesStatusFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakePartCostSrv{}
	handler := NewPartCostHandler(service)

	rec := httptest.NewRecorder()
	c := authedContext(rec, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	c.Request = httptest.NewRequest(http.MethodGet, "/part-costs?status=pending,approved&ordered_by=technician", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleAdmin, service.lastRole)
	assert.Equal(t, []models.PartCostStatus{models.PartCostStatusPending, models.PartCostStatusApproved}, service.lastQuery.Status)
	assert.Equal(t, models.PartsOrderedByTechnician, service.lastQuery.OrderedBy)
}

func TestPartCostHandlerReview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakePartCostSrv{request: &models.PartCostRequest{ID: "req-1", Status: models.PartCostStatusApproved}}
	handler := NewPartCostHandler(service)

	body := bytes.NewBufferString(`{"status":"APPROVED"}`)
	rec := httptest.NewRecorder()
	c := authedContext(rec, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	c.Request = httptest.NewRequest(http.MethodPost, "/part-costs/req-1/review", body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Review(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", service.lastCaller)
}
