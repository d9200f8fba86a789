package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/models"
)

type fakeDashboardSrv struct {
	resp       *dto.DashboardMetrics
	err        error
	hit        bool
	lastFilter models.JobFilter
}

func (f *fakeDashboardSrv) Overview(_ context.Context, filter models.JobFilter) (*dto.DashboardMetrics, bool, error) {
	f.lastFilter = filter
	return f.resp, f.hit, f.err
}

func TestDashboardHandlerOverviewSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{
		resp: &dto.DashboardMetrics{TotalJobs: 12, TotalSales: 3400},
		hit:  true,
	}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard?technician=T01&start_date=2024-01-01", nil)

	handler.Overview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T01", service.lastFilter.Technician)
	assert.NotNil(t, service.lastFilter.StartDate)

	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, float64(12), envelope.Data["total_jobs"])
}

func TestDashboardHandlerOverviewInvalidDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard?start_date=13/01/2024", nil)

	handler.Overview(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
