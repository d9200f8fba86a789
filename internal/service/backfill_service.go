package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/models"
)

const (
	// firstInvoiceNumber seeds numbering when no invoices exist yet.
	firstInvoiceNumber = 10000
	// fallbackInvoiceSuffix stands in for invoice values with no usable digits
	// so numbering continues above the legacy range.
	fallbackInvoiceSuffix = 9999
	// defaultZipCode marks locations outside the lookup table.
	defaultZipCode = "00000"
)

// cityZipTable maps "{city}, {state}" (lowercased) to a representative zip.
var cityZipTable = map[string]string{
	"new york, ny":      "10001",
	"los angeles, ca":   "90001",
	"chicago, il":       "60601",
	"houston, tx":       "77001",
	"phoenix, az":       "85001",
	"philadelphia, pa":  "19101",
	"san antonio, tx":   "78201",
	"san diego, ca":     "92101",
	"dallas, tx":        "75201",
	"san jose, ca":      "95101",
	"austin, tx":        "78701",
	"jacksonville, fl":  "32201",
	"fort worth, tx":    "76101",
	"columbus, oh":      "43201",
	"charlotte, nc":     "28201",
	"indianapolis, in":  "46201",
	"san francisco, ca": "94101",
	"seattle, wa":       "98101",
	"denver, co":        "80201",
	"boston, ma":        "02101",
}

type backfillJobRepository interface {
	ListMissingInvoices(ctx context.Context) ([]models.JobRecord, error)
	ListMissingZips(ctx context.Context) ([]models.JobRecord, error)
	ListInvoiceNumbers(ctx context.Context) ([]string, error)
	UpdateInvoiceByNaturalKey(ctx context.Context, record models.JobRecord, invoiceNumber string) (int64, error)
	UpdateZipByNaturalKey(ctx context.Context, record models.JobRecord, zip string) (int64, error)
}

type backfillMetrics interface {
	RecordBackfillUpdates(kind string, updates int)
}

type backfillAuditor interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// BackfillService assigns missing invoice numbers and zip codes. Both passes
// are idempotent: updates are guarded by a still-null predicate, so a second
// run over the same data reports zero updates.
type BackfillService struct {
	jobs    backfillJobRepository
	cache   *CacheService
	metrics backfillMetrics
	audit   backfillAuditor
	logger  *zap.Logger
}

// BackfillServiceParams groups constructor dependencies.
type BackfillServiceParams struct {
	Jobs    backfillJobRepository
	Cache   *CacheService
	Metrics backfillMetrics
	Audit   backfillAuditor
	Logger  *zap.Logger
}

// NewBackfillService constructs a BackfillService.
func NewBackfillService(params BackfillServiceParams) *BackfillService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackfillService{
		jobs:    params.Jobs,
		cache:   params.Cache,
		metrics: params.Metrics,
		audit:   params.Audit,
		logger:  logger,
	}
}

// InvoiceSuffix extracts the numeric portion of an invoice value by stripping
// every non-digit byte. Values with no usable digits map to the fallback
// suffix.
func InvoiceSuffix(invoice string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, invoice)
	value, err := strconv.Atoi(digits)
	if err != nil {
		return fallbackInvoiceSuffix
	}
	return value
}

// NextInvoiceNumber computes the next number from every invoice currently
// stored: one past the highest numeric suffix, or the seed when none exist.
func NextInvoiceNumber(existing []string) int {
	if len(existing) == 0 {
		return firstInvoiceNumber
	}
	max := 0
	for _, invoice := range existing {
		if suffix := InvoiceSuffix(invoice); suffix > max {
			max = suffix
		}
	}
	return max + 1
}

// FormatInvoiceNumber renders a number as a five-digit zero-padded string.
func FormatInvoiceNumber(n int) string {
	return fmt.Sprintf("%05d", n)
}

// ZipForLocation resolves a city/state pair against the static table.
func ZipForLocation(city, state *string) string {
	if city == nil || state == nil || *city == "" || *state == "" {
		return defaultZipCode
	}
	key := strings.ToLower(strings.TrimSpace(*city)) + ", " + strings.ToLower(strings.TrimSpace(*state))
	if zip, ok := cityZipTable[key]; ok {
		return zip
	}
	return defaultZipCode
}

// Run executes both backfill passes and invalidates cached aggregates when
// anything changed.
func (s *BackfillService) Run(ctx context.Context, runBy string) (*dto.BackfillResult, error) {
	result := &dto.BackfillResult{}

	if err := s.backfillInvoices(ctx, result); err != nil {
		return nil, err
	}
	if err := s.backfillZips(ctx, result); err != nil {
		return nil, err
	}

	if result.UpdatedInvoices+result.UpdatedZips > 0 {
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
				s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
			}
			if err := s.cache.Invalidate(ctx, "clients:*"); err != nil {
				s.logger.Warn("client cache invalidation failed", zap.Error(err))
			}
		}
		s.recordAudit(ctx, runBy, result)
	}

	s.logger.Info("backfill finished",
		zap.Int("updated_invoices", result.UpdatedInvoices),
		zap.Int("updated_zips", result.UpdatedZips),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *BackfillService) backfillInvoices(ctx context.Context, result *dto.BackfillResult) error {
	missing, err := s.jobs.ListMissingInvoices(ctx)
	if err != nil {
		return fmt.Errorf("list missing invoices: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	existing, err := s.jobs.ListInvoiceNumbers(ctx)
	if err != nil {
		return fmt.Errorf("list invoice numbers: %w", err)
	}
	next := NextInvoiceNumber(existing)

	// missing is ordered date_recorded DESC, so the newest work gets the
	// lowest new number.
	for _, record := range missing {
		invoice := FormatInvoiceNumber(next)
		rows, err := s.updateInvoiceWithRetry(ctx, record, invoice)
		if err != nil {
			s.logger.Warn("invoice assignment failed",
				zap.String("customer", record.CustomerName), zap.Error(err))
			result.Skipped++
			continue
		}
		if rows == 0 {
			// Another run filled this record between the listing and the
			// update; the null guard matched nothing.
			s.logger.Info("invoice already assigned, skipping",
				zap.String("customer", record.CustomerName),
				zap.String("technician", record.TechnicianCode))
			result.Skipped++
			continue
		}
		result.UpdatedInvoices++
		next++
	}
	result.NextInvoice = FormatInvoiceNumber(next)

	if s.metrics != nil {
		s.metrics.RecordBackfillUpdates("invoice", result.UpdatedInvoices)
	}
	return nil
}

func (s *BackfillService) updateInvoiceWithRetry(ctx context.Context, record models.JobRecord, invoice string) (int64, error) {
	rows, err := s.jobs.UpdateInvoiceByNaturalKey(ctx, record, invoice)
	if err == nil {
		return rows, nil
	}
	// One retry covers transient connection drops on long runs.
	return s.jobs.UpdateInvoiceByNaturalKey(ctx, record, invoice)
}

func (s *BackfillService) backfillZips(ctx context.Context, result *dto.BackfillResult) error {
	missing, err := s.jobs.ListMissingZips(ctx)
	if err != nil {
		return fmt.Errorf("list missing zips: %w", err)
	}

	updated := 0
	for _, record := range missing {
		zip := ZipForLocation(record.City, record.State)
		rows, err := s.jobs.UpdateZipByNaturalKey(ctx, record, zip)
		if err != nil {
			s.logger.Warn("zip assignment failed",
				zap.String("customer", record.CustomerName), zap.Error(err))
			result.Skipped++
			continue
		}
		if rows == 0 {
			s.logger.Info("zip already assigned, skipping",
				zap.String("customer", record.CustomerName),
				zap.String("technician", record.TechnicianCode))
			result.Skipped++
			continue
		}
		updated++
	}
	result.UpdatedZips = updated

	if s.metrics != nil {
		s.metrics.RecordBackfillUpdates("zip", updated)
	}
	return nil
}

func (s *BackfillService) recordAudit(ctx context.Context, runBy string, result *dto.BackfillResult) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:   models.AuditActionBackfill,
		Resource: "job_records",
		NewValues: []byte(fmt.Sprintf(`{"updated_invoices":%d,"updated_zips":%d,"skipped":%d}`,
			result.UpdatedInvoices, result.UpdatedZips, result.Skipped)),
	}
	if runBy != "" {
		entry.UserID = &runBy
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("backfill audit write failed", zap.Error(err))
	}
}
