package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/payout-api/internal/models"
)

func partCostRows(id string, status models.PartCostStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "job_invoice_number", "technician_id", "current_parts_cost", "requested_parts_cost",
		"notes", "status", "parts_ordered_by", "admin_notes", "approved_by", "approved_at", "created_at", "updated_at",
	}).AddRow(id, "10001", "tech-1", 40.0, 55.0,
		"receipt attached", status, "TECHNICIAN", nil, nil, nil, now, now)
}

func TestPartCostRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPartCostRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO part_cost_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.PartCostRequest{
		JobInvoiceNumber:   "10001",
		TechnicianID:       "tech-1",
		CurrentPartsCost:   40,
		RequestedPartsCost: 55,
		Notes:              "receipt attached",
		PartsOrderedBy:     models.PartsOrderedByTechnician,
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.Equal(t, models.PartCostStatusPending, request.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, job_invoice_number")).
		WithArgs(request.ID).
		WillReturnRows(partCostRows(request.ID, models.PartCostStatusPending))

	found, err := repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, request.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPartCostRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPartCostRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, job_invoice_number")).
		WithArgs("PENDING", "tech-1").
		WillReturnRows(partCostRows("req-1", models.PartCostStatusPending))

	list, err := repo.List(context.Background(), models.PartCostFilter{
		Status:       []models.PartCostStatus{models.PartCostStatusPending},
		TechnicianID: "tech-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPartCostRepositoryReviewIsOneShot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPartCostRepository(db)
	now := time.Now()
	notes := "approved with receipt"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE part_cost_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.UpdateReview(context.Background(), ReviewParams{
		ID:         "req-1",
		Status:     models.PartCostStatusApproved,
		AdminNotes: &notes,
		ReviewedBy: "admin-1",
		ReviewedAt: now,
	})
	require.NoError(t, err)

	// Already reviewed: the PENDING guard matches zero rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE part_cost_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateReview(context.Background(), ReviewParams{
		ID:         "req-1",
		Status:     models.PartCostStatusRejected,
		ReviewedBy: "admin-1",
		ReviewedAt: now,
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPartCostRepositoryListApprovedForJobs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPartCostRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, job_invoice_number")).
		WithArgs("APPROVED", "10001", "10002").
		WillReturnRows(partCostRows("req-1", models.PartCostStatusApproved))

	list, err := repo.ListApprovedForJobs(context.Background(), []string{"10001", "10002"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	empty, err := repo.ListApprovedForJobs(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}
