package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/models"
	"github.com/fieldserve/payout-api/internal/repository"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
)

type fakePartCostStore struct {
	requests    map[string]*models.PartCostRequest
	listFilter  models.PartCostFilter
	appliedCost *float64
	reviewErr   error
}

func newFakePartCostStore() *fakePartCostStore {
	return &fakePartCostStore{requests: make(map[string]*models.PartCostRequest)}
}

func (f *fakePartCostStore) Create(_ context.Context, request *models.PartCostRequest) error {
	if request.ID == "" {
		request.ID = "req-1"
	}
	f.requests[request.ID] = request
	return nil
}

func (f *fakePartCostStore) GetByID(_ context.Context, id string) (*models.PartCostRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *request
	return &clone, nil
}

func (f *fakePartCostStore) List(_ context.Context, filter models.PartCostFilter) ([]models.PartCostRequest, error) {
	f.listFilter = filter
	result := make([]models.PartCostRequest, 0, len(f.requests))
	for _, request := range f.requests {
		result = append(result, *request)
	}
	return result, nil
}

func (f *fakePartCostStore) UpdateReview(_ context.Context, params repository.ReviewParams) error {
	if f.reviewErr != nil {
		return f.reviewErr
	}
	request, ok := f.requests[params.ID]
	if !ok || request.Status != models.PartCostStatusPending {
		return sql.ErrNoRows
	}
	request.Status = params.Status
	request.AdminNotes = params.AdminNotes
	request.ApprovedBy = &params.ReviewedBy
	return nil
}

func (f *fakePartCostStore) ApplyApprovedCost(_ context.Context, _ string, partsCost float64) error {
	f.appliedCost = &partsCost
	return nil
}

type fakeAuditWriter struct {
	entries []models.AuditLog
}

func (f *fakeAuditWriter) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func newPartCostService(store *fakePartCostStore, audit *fakeAuditWriter) *PartCostService {
	params := PartCostServiceParams{
		Repo:   store,
		Logger: zap.NewNop(),
	}
	if audit != nil {
		params.Audit = audit
	}
	return NewPartCostService(params)
}

func TestPartCostSubmitValidates(t *testing.T) {
	svc := newPartCostService(newFakePartCostStore(), nil)

	_, err := svc.Submit(context.Background(), dto.CreatePartCostRequest{}, "tech-1")
	require.Error(t, err)

	_, err = svc.Submit(context.Background(), dto.CreatePartCostRequest{
		JobInvoiceNumber:   "10001",
		RequestedPartsCost: 55,
		Notes:              "receipt attached",
		PartsOrderedBy:     models.PartsOrderedByTechnician,
	}, "")
	require.Error(t, err)

	request, err := svc.Submit(context.Background(), dto.CreatePartCostRequest{
		JobInvoiceNumber:   "10001",
		CurrentPartsCost:   40,
		RequestedPartsCost: 55,
		Notes:              "receipt attached",
		PartsOrderedBy:     models.PartsOrderedByTechnician,
	}, "tech-1")
	require.NoError(t, err)
	assert.Equal(t, models.PartCostStatusPending, request.Status)
	assert.Equal(t, "tech-1", request.TechnicianID)
}

func TestPartCostListScopesTechnicians(t *testing.T) {
	store := newFakePartCostStore()
	svc := newPartCostService(store, nil)

	_, err := svc.List(context.Background(), dto.PartCostQuery{}, "tech-1", models.RoleTechnician)
	require.NoError(t, err)
	assert.Equal(t, "tech-1", store.listFilter.TechnicianID)

	_, err = svc.List(context.Background(), dto.PartCostQuery{}, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, store.listFilter.TechnicianID)
}

func TestPartCostReviewApprovesOnce(t *testing.T) {
	store := newFakePartCostStore()
	audit := &fakeAuditWriter{}
	svc := newPartCostService(store, audit)

	submitted, err := svc.Submit(context.Background(), dto.CreatePartCostRequest{
		JobInvoiceNumber:   "10001",
		CurrentPartsCost:   40,
		RequestedPartsCost: 55,
		Notes:              "receipt attached",
		PartsOrderedBy:     models.PartsOrderedByTechnician,
	}, "tech-1")
	require.NoError(t, err)

	reviewed, err := svc.Review(context.Background(), submitted.ID, dto.ReviewPartCostRequest{
		Status:     models.PartCostStatusApproved,
		AdminNotes: "looks right",
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.PartCostStatusApproved, reviewed.Status)

	// Approval writes the corrected cost back to the job record.
	require.NotNil(t, store.appliedCost)
	assert.InDelta(t, 55, *store.appliedCost, 1e-9)
	assert.Len(t, audit.entries, 1)

	// Review is one-shot.
	_, err = svc.Review(context.Background(), submitted.ID, dto.ReviewPartCostRequest{
		Status: models.PartCostStatusRejected,
	}, "admin-1")
	require.Error(t, err)
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrAlreadyReviewed.Code, typed.Code)
}

func TestPartCostRejectDoesNotTouchJob(t *testing.T) {
	store := newFakePartCostStore()
	svc := newPartCostService(store, nil)

	submitted, err := svc.Submit(context.Background(), dto.CreatePartCostRequest{
		JobInvoiceNumber:   "10002",
		RequestedPartsCost: 90,
		Notes:              "estimate only",
		PartsOrderedBy:     models.PartsOrderedByOffice,
	}, "tech-1")
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), submitted.ID, dto.ReviewPartCostRequest{
		Status: models.PartCostStatusRejected,
	}, "admin-1")
	require.NoError(t, err)
	assert.Nil(t, store.appliedCost)
}

func TestPartCostGetEnforcesOwnership(t *testing.T) {
	store := newFakePartCostStore()
	svc := newPartCostService(store, nil)

	submitted, err := svc.Submit(context.Background(), dto.CreatePartCostRequest{
		JobInvoiceNumber:   "10003",
		RequestedPartsCost: 20,
		Notes:              "washer pump",
		PartsOrderedBy:     models.PartsOrderedByTechnician,
	}, "tech-1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), submitted.ID, "tech-2", models.RoleTechnician)
	require.Error(t, err)

	_, err = svc.Get(context.Background(), submitted.ID, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
}
