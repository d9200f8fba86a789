package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/models"
)

type fakePayoutSrv struct {
	statement *dto.TechnicianPayout
	err       error
	lastCode  string
	lastCodes []string
}

func (f *fakePayoutSrv) Statement(_ context.Context, code string, _ models.JobFilter) (*dto.TechnicianPayout, error) {
	f.lastCode = code
	return f.statement, f.err
}

func (f *fakePayoutSrv) Statements(_ context.Context, _ models.JobFilter, codes []string) ([]dto.TechnicianPayout, error) {
	f.lastCodes = codes
	if f.err != nil {
		return nil, f.err
	}
	payouts := make([]dto.TechnicianPayout, len(codes))
	for i, code := range codes {
		payouts[i] = dto.TechnicianPayout{TechnicianCode: code}
	}
	return payouts, nil
}

type fakeCodeLister struct {
	codes []string
}

func (f *fakeCodeLister) TechnicianCodes(context.Context, models.JobFilter) ([]string, error) {
	return f.codes, nil
}

func TestPayoutHandlerStatement(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakePayoutSrv{statement: &dto.TechnicianPayout{TechnicianCode: "T01", TotalPayout: 192.5}}
	handler := NewPayoutHandler(service, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/payouts/T01", nil)
	c.Params = gin.Params{{Key: "code", Value: "T01"}}

	handler.Statement(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T01", service.lastCode)

	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, 192.5, envelope.Data["total_payout"])
}

func TestPayoutHandlerStatementsExplicitCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakePayoutSrv{}
	handler := NewPayoutHandler(service, &fakeCodeLister{codes: []string{"ZZ"}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/payouts?codes=T01,%20T02", nil)

	handler.Statements(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"T01", "T02"}, service.lastCodes)
}

func TestPayoutHandlerStatementsDefaultsToAllCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakePayoutSrv{}
	handler := NewPayoutHandler(service, &fakeCodeLister{codes: []string{"T01", "T02", "T03"}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/payouts", nil)

	handler.Statements(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, service.lastCodes, 3)
}
