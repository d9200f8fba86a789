package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fieldserve/payout-api/internal/models"
)

const jobColumns = `id, invoice_number, customer_name, consumer_name, technician_code,
       total_amount, parts_cost, merchandise_sold, parts_sold, service_call_amount,
       other_labor, sales_tax, tp_money_received, type_serviced, make_serviced, dept,
       is_oem_client, paycode, prior_paycode2_date, city, state, zip_code_for_job,
       date_recorded, created_at, updated_at`

// FetchAllPageSize is the page size used when materializing a full filtered
// result set before aggregation.
const FetchAllPageSize = 1000

// JobRepository manages persistence for imported job records.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

func jobFilterClause(filter models.JobFilter) (string, []interface{}) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.Technician != "" {
		args = append(args, filter.Technician)
		conditions = append(conditions, fmt.Sprintf("technician_code = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("date_recorded >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("date_recorded <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of job records matching the filter, newest first.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter, page, pageSize int) ([]models.JobRecord, int, error) {
	where, args := jobFilterClause(filter)

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > FetchAllPageSize {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s FROM job_records%s ORDER BY date_recorded DESC NULLS LAST, created_at DESC LIMIT %d OFFSET %d",
		jobColumns, where, pageSize, offset)

	var records []models.JobRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM job_records" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	return records, total, nil
}

// FetchAll materializes every record matching the filter by walking fixed-size
// pages. Aggregations run over the concatenated result, never inside SQL, so
// their arithmetic matches the in-memory calculators exactly.
func (r *JobRepository) FetchAll(ctx context.Context, filter models.JobFilter) ([]models.JobRecord, error) {
	where, args := jobFilterClause(filter)

	var all []models.JobRecord
	for offset := 0; ; offset += FetchAllPageSize {
		query := fmt.Sprintf("SELECT %s FROM job_records%s ORDER BY date_recorded DESC NULLS LAST, created_at DESC LIMIT %d OFFSET %d",
			jobColumns, where, FetchAllPageSize, offset)

		var page []models.JobRecord
		if err := r.db.SelectContext(ctx, &page, query, args...); err != nil {
			return nil, fmt.Errorf("fetch jobs page at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < FetchAllPageSize {
			break
		}
		if filter.Limit > 0 && len(all) >= filter.Limit {
			break
		}
	}

	if filter.Limit > 0 && len(all) > filter.Limit {
		all = all[:filter.Limit]
	}
	return all, nil
}

// InsertBatch writes one import batch inside a single transaction. A failed
// batch rolls back whole so the importer can retry or report it as a unit.
func (r *JobRepository) InsertBatch(ctx context.Context, records []models.JobRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const query = `INSERT INTO job_records
	(id, invoice_number, customer_name, consumer_name, technician_code,
	 total_amount, parts_cost, merchandise_sold, parts_sold, service_call_amount,
	 other_labor, sales_tax, tp_money_received, type_serviced, make_serviced, dept,
	 is_oem_client, paycode, prior_paycode2_date, city, state, zip_code_for_job,
	 date_recorded, created_at, updated_at)
	VALUES (:id, :invoice_number, :customer_name, :consumer_name, :technician_code,
	 :total_amount, :parts_cost, :merchandise_sold, :parts_sold, :service_call_amount,
	 :other_labor, :sales_tax, :tp_money_received, :type_serviced, :make_serviced, :dept,
	 :is_oem_client, :paycode, :prior_paycode2_date, :city, :state, :zip_code_for_job,
	 :date_recorded, :created_at, :updated_at)`

	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		records[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			return fmt.Errorf("insert job record: %w", err)
		}
	}
	return tx.Commit()
}

// ListMissingInvoices returns records lacking an invoice number, most recent
// first, so new numbers are assigned to the newest work first.
func (r *JobRepository) ListMissingInvoices(ctx context.Context) ([]models.JobRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM job_records
		WHERE invoice_number IS NULL OR TRIM(invoice_number) = ''
		ORDER BY date_recorded DESC NULLS LAST, created_at DESC`, jobColumns)

	var records []models.JobRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list missing invoices: %w", err)
	}
	return records, nil
}

// ListMissingZips returns records with a city but no zip code.
func (r *JobRepository) ListMissingZips(ctx context.Context) ([]models.JobRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM job_records
		WHERE (zip_code_for_job IS NULL OR TRIM(zip_code_for_job) = '')
		ORDER BY date_recorded DESC NULLS LAST, created_at DESC`, jobColumns)

	var records []models.JobRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list missing zips: %w", err)
	}
	return records, nil
}

// ListInvoiceNumbers returns every non-empty invoice number currently stored.
// The backfill computes the next number from the full list in memory because
// invoice values carry mixed non-numeric prefixes a MAX() cannot order.
func (r *JobRepository) ListInvoiceNumbers(ctx context.Context) ([]string, error) {
	const query = `SELECT invoice_number FROM job_records
		WHERE invoice_number IS NOT NULL AND TRIM(invoice_number) <> ''`

	var numbers []string
	if err := r.db.SelectContext(ctx, &numbers, query); err != nil {
		return nil, fmt.Errorf("list invoice numbers: %w", err)
	}
	return numbers, nil
}

// UpdateInvoiceByNaturalKey assigns an invoice number to the record matching
// the natural key, guarded by a still-null predicate so a concurrent or
// repeated run never overwrites an assigned number. Returns rows affected.
func (r *JobRepository) UpdateInvoiceByNaturalKey(ctx context.Context, record models.JobRecord, invoiceNumber string) (int64, error) {
	query := `UPDATE job_records
		SET invoice_number = $1, updated_at = $2
		WHERE customer_name = $3 AND technician_code = $4
		  AND (invoice_number IS NULL OR TRIM(invoice_number) = '')`
	args := []interface{}{invoiceNumber, time.Now().UTC(), record.CustomerName, record.TechnicianCode}

	if record.DateRecorded != nil {
		args = append(args, *record.DateRecorded)
		query += fmt.Sprintf(" AND date_recorded = $%d", len(args))
	} else {
		query += " AND date_recorded IS NULL"
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("assign invoice number: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check invoice update rows: %w", err)
	}
	return rows, nil
}

// UpdateZipByNaturalKey fills the zip code for the record matching the natural
// key, guarded the same way as invoice assignment. Returns rows affected.
func (r *JobRepository) UpdateZipByNaturalKey(ctx context.Context, record models.JobRecord, zip string) (int64, error) {
	query := `UPDATE job_records
		SET zip_code_for_job = $1, updated_at = $2
		WHERE customer_name = $3 AND technician_code = $4
		  AND (zip_code_for_job IS NULL OR TRIM(zip_code_for_job) = '')`
	args := []interface{}{zip, time.Now().UTC(), record.CustomerName, record.TechnicianCode}

	if record.DateRecorded != nil {
		args = append(args, *record.DateRecorded)
		query += fmt.Sprintf(" AND date_recorded = $%d", len(args))
	} else {
		query += " AND date_recorded IS NULL"
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("assign zip code: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check zip update rows: %w", err)
	}
	return rows, nil
}

// DistinctTechnicianCodes lists technician codes present in the job table,
// independent of whether the technician has a login account.
func (r *JobRepository) DistinctTechnicianCodes(ctx context.Context, filter models.JobFilter) ([]string, error) {
	where, args := jobFilterClause(filter)
	query := "SELECT DISTINCT technician_code FROM job_records" + where + " ORDER BY technician_code"

	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, args...); err != nil {
		return nil, fmt.Errorf("list technician codes: %w", err)
	}
	return codes, nil
}
