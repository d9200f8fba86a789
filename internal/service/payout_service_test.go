package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/models"
)

type fakeApprovedParts struct {
	requests []models.PartCostRequest
	err      error
}

func (f *fakeApprovedParts) ListApprovedForJobs(context.Context, []string) ([]models.PartCostRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.requests, nil
}

type fakeTechnicianFinder struct {
	technician *models.Technician
	err        error
}

func (f *fakeTechnicianFinder) FindByCode(context.Context, string) (*models.Technician, error) {
	return f.technician, f.err
}

func TestStatementCommissionRates(t *testing.T) {
	oem := models.JobRecord{TotalAmount: 200, PartsCost: 50, IsOEMClient: boolPtr(true)}
	rate, commission := StatementCommission(oem)
	assert.InDelta(t, 0.65, rate, 1e-9)
	assert.InDelta(t, 97.5, commission, 1e-9)

	standard := models.JobRecord{TotalAmount: 200, PartsCost: 50, IsOEMClient: boolPtr(false)}
	rate, commission = StatementCommission(standard)
	assert.InDelta(t, 0.50, rate, 1e-9)
	assert.InDelta(t, 75.0, commission, 1e-9)
}

func TestPayoutServiceStatement(t *testing.T) {
	jobs := &fakeJobProvider{records: []models.JobRecord{
		{
			TotalAmount: 200, PartsCost: 50, IsOEMClient: boolPtr(true),
			CustomerName: "Acme", TechnicianCode: "T01",
			InvoiceNumber: strPtr("10001"), DateRecorded: datePtr(2024, 3, 2),
		},
		{
			TotalAmount: 100, PartsCost: 20, IsOEMClient: boolPtr(false),
			CustomerName: "Beta", TechnicianCode: "T01",
			InvoiceNumber: strPtr("10002"), DateRecorded: datePtr(2024, 3, 5),
		},
	}}
	parts := &fakeApprovedParts{requests: []models.PartCostRequest{
		{
			JobInvoiceNumber: "10001", TechnicianID: "tech-1",
			RequestedPartsCost: 55, Status: models.PartCostStatusApproved,
			PartsOrderedBy: models.PartsOrderedByTechnician,
		},
		{
			JobInvoiceNumber: "10002", TechnicianID: "tech-1",
			RequestedPartsCost: 30, Status: models.PartCostStatusApproved,
			PartsOrderedBy: models.PartsOrderedByOffice,
		},
	}}

	svc := NewPayoutService(PayoutServiceParams{
		Jobs:        jobs,
		PartCosts:   parts,
		Technicians: &fakeTechnicianFinder{technician: &models.Technician{ID: "tech-1", Code: "T01"}},
		Logger:      zap.NewNop(),
	})

	payout, err := svc.Statement(context.Background(), "T01", models.JobFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, payout.TotalJobs)
	assert.InDelta(t, 300, payout.TotalSales, 1e-9)

	// 97.5 OEM + 40 standard, no parts addback per job.
	assert.InDelta(t, 137.5, payout.TotalCommission, 1e-9)

	// Technician-ordered parts reimbursed once; office parts display only.
	assert.InDelta(t, 55, payout.TechPartsTotal, 1e-9)
	assert.InDelta(t, 30, payout.OfficePartsTotal, 1e-9)
	assert.InDelta(t, 192.5, payout.TotalPayout, 1e-9)

	// Newest job first.
	require.Len(t, payout.Jobs, 2)
	assert.Equal(t, "10002", payout.Jobs[0].InvoiceNumber)
}

func TestPayoutServiceStatementSkipsOtherTechniciansRequests(t *testing.T) {
	jobs := &fakeJobProvider{records: []models.JobRecord{
		{TotalAmount: 100, PartsCost: 0, CustomerName: "Acme", InvoiceNumber: strPtr("10001")},
	}}
	parts := &fakeApprovedParts{requests: []models.PartCostRequest{
		{
			JobInvoiceNumber: "10001", TechnicianID: "someone-else",
			RequestedPartsCost: 40, Status: models.PartCostStatusApproved,
			PartsOrderedBy: models.PartsOrderedByTechnician,
		},
	}}

	svc := NewPayoutService(PayoutServiceParams{
		Jobs:        jobs,
		PartCosts:   parts,
		Technicians: &fakeTechnicianFinder{technician: &models.Technician{ID: "tech-1", Code: "T01"}},
		Logger:      zap.NewNop(),
	})

	payout, err := svc.Statement(context.Background(), "T01", models.JobFilter{})
	require.NoError(t, err)
	assert.Zero(t, payout.TechPartsTotal)
	assert.InDelta(t, payout.TotalCommission, payout.TotalPayout, 1e-9)
}

func TestPayoutServiceStatementRequiresCode(t *testing.T) {
	svc := NewPayoutService(PayoutServiceParams{Jobs: &fakeJobProvider{}})
	_, err := svc.Statement(context.Background(), "", models.JobFilter{})
	require.Error(t, err)
}
