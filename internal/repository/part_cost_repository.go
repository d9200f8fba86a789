package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldserve/payout-api/internal/models"
)

const partCostColumns = `id, job_invoice_number, technician_id, current_parts_cost, requested_parts_cost,
       notes, status, parts_ordered_by, admin_notes, approved_by, approved_at, created_at, updated_at`

// PartCostRepository persists parts-cost correction requests.
type PartCostRepository struct {
	db *sqlx.DB
}

// NewPartCostRepository constructs the repository.
func NewPartCostRepository(db *sqlx.DB) *PartCostRepository {
	return &PartCostRepository{db: db}
}

// Create inserts a new request in PENDING state.
func (r *PartCostRepository) Create(ctx context.Context, request *models.PartCostRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.PartCostStatusPending
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	const query = `INSERT INTO part_cost_requests
	(id, job_invoice_number, technician_id, current_parts_cost, requested_parts_cost,
	 notes, status, parts_ordered_by, admin_notes, approved_by, approved_at, created_at, updated_at)
	VALUES (:id, :job_invoice_number, :technician_id, :current_parts_cost, :requested_parts_cost,
	 :notes, :status, :parts_ordered_by, :admin_notes, :approved_by, :approved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create part cost request: %w", err)
	}
	return nil
}

// GetByID fetches one request.
func (r *PartCostRepository) GetByID(ctx context.Context, id string) (*models.PartCostRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM part_cost_requests WHERE id = $1", partCostColumns)
	var request models.PartCostRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, latest first.
func (r *PartCostRepository) List(ctx context.Context, filter models.PartCostFilter) ([]models.PartCostRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM part_cost_requests", partCostColumns))

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TechnicianID != "" {
		args = append(args, filter.TechnicianID)
		conditions = append(conditions, fmt.Sprintf("technician_id = $%d", len(args)))
	}
	if filter.OrderedBy != "" {
		args = append(args, filter.OrderedBy)
		conditions = append(conditions, fmt.Sprintf("parts_ordered_by = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.PartCostRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list part cost requests: %w", err)
	}
	return requests, nil
}

// ListApprovedForJobs returns approved requests for the given invoice numbers,
// used by the payout calculator to compute reimbursements.
func (r *PartCostRepository) ListApprovedForJobs(ctx context.Context, invoiceNumbers []string) ([]models.PartCostRequest, error) {
	if len(invoiceNumbers) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(invoiceNumbers))
	args := make([]interface{}, 0, len(invoiceNumbers)+1)
	args = append(args, models.PartCostStatusApproved)
	for i, invoice := range invoiceNumbers {
		args = append(args, invoice)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf("SELECT %s FROM part_cost_requests WHERE status = $1 AND job_invoice_number IN (%s)",
		partCostColumns, strings.Join(placeholders, ","))

	var requests []models.PartCostRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list approved part costs: %w", err)
	}
	return requests, nil
}

// ReviewParams groups the mutable review columns.
type ReviewParams struct {
	ID         string
	Status     models.PartCostStatus
	AdminNotes *string
	ReviewedBy string
	ReviewedAt time.Time
}

// UpdateReview finalizes a request. The status = PENDING guard makes review a
// one-shot transition: a second review matches zero rows and surfaces
// sql.ErrNoRows.
func (r *PartCostRepository) UpdateReview(ctx context.Context, params ReviewParams) error {
	query := fmt.Sprintf(`UPDATE part_cost_requests
		SET status = :status, admin_notes = :admin_notes, approved_by = :reviewed_by,
		    approved_at = :reviewed_at, updated_at = :reviewed_at
		WHERE id = :id AND status = '%s'`, models.PartCostStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"status":      params.Status,
		"admin_notes": params.AdminNotes,
		"reviewed_by": params.ReviewedBy,
		"reviewed_at": params.ReviewedAt,
	})
	if err != nil {
		return fmt.Errorf("update part cost review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check review rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyApprovedCost writes the approved parts cost back onto the job record.
func (r *PartCostRepository) ApplyApprovedCost(ctx context.Context, invoiceNumber string, partsCost float64) error {
	const query = `UPDATE job_records SET parts_cost = $2, updated_at = $3 WHERE invoice_number = $1`
	if _, err := r.db.ExecContext(ctx, query, invoiceNumber, partsCost, time.Now().UTC()); err != nil {
		return fmt.Errorf("apply approved parts cost: %w", err)
	}
	return nil
}
