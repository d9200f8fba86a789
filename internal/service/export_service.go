package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
	"github.com/fieldserve/payout-api/pkg/export"
	"github.com/fieldserve/payout-api/pkg/storage"
)

var statementHeaders = []string{
	"Invoice", "Customer", "Date", "Total", "Parts", "OEM", "Rate", "Commission",
}

type statementProvider interface {
	Statement(ctx context.Context, technicianCode string, filter models.JobFilter) (*dto.TechnicianPayout, error)
}

// ExportService renders payout statements as CSV or PDF files on local disk
// and hands out signed download tokens.
type ExportService struct {
	payouts statementProvider
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	ttl     time.Duration
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Payouts statementProvider
	Store   *storage.LocalStorage
	Signer  *storage.SignedURLSigner
	Logger  *zap.Logger
	TTL     time.Duration
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportService{
		payouts: params.Payouts,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		store:   params.Store,
		signer:  params.Signer,
		logger:  logger,
		ttl:     ttl,
	}
}

// Statement generates a payout statement file and returns a signed reference.
func (s *ExportService) Statement(ctx context.Context, technicianCode string, filter models.JobFilter, format dto.ExportFormat) (*dto.ExportResult, error) {
	payout, err := s.payouts.Statement(ctx, technicianCode, filter)
	if err != nil {
		return nil, err
	}

	dataset := statementDataset(payout)
	exportID := uuid.NewString()

	var rendered []byte
	var filename string
	switch format {
	case dto.ExportFormatCSV:
		rendered, err = s.csv.Render(dataset)
		filename = fmt.Sprintf("statements/%s-%s.csv", technicianCode, exportID)
	case dto.ExportFormatPDF:
		title := fmt.Sprintf("Payout Statement - %s", technicianCode)
		totals := []string{
			fmt.Sprintf("Commission: %s", export.Money(payout.TotalCommission)),
			fmt.Sprintf("Parts Reimbursement: %s", export.Money(payout.TechPartsTotal)),
			fmt.Sprintf("Total Payout: %s", export.Money(payout.TotalPayout)),
		}
		rendered, err = s.pdf.Render(dataset, title, totals)
		filename = fmt.Sprintf("statements/%s-%s.pdf", technicianCode, exportID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}

	relPath, err := s.store.Save(filename, rendered)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store statement")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}

	s.logger.Info("statement exported",
		zap.String("technician", technicianCode),
		zap.String("format", string(format)),
		zap.String("export_id", exportID))

	return &dto.ExportResult{
		ExportID:  exportID,
		Format:    format,
		Token:     token,
		URL:       fmt.Sprintf("/api/v1/exports/download?token=%s", token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and returns the file handle.
func (s *ExportService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "statement no longer available")
	}
	return file, nil
}

// Cleanup drops statement files older than the signing TTL.
func (s *ExportService) Cleanup() {
	deleted, err := s.store.CleanupOlderThan(s.ttl)
	if err != nil {
		s.logger.Warn("statement cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired statements removed", zap.Int("count", len(deleted)))
	}
}

func statementDataset(payout *dto.TechnicianPayout) export.Dataset {
	rows := make([]map[string]string, 0, len(payout.Jobs))
	for _, line := range payout.Jobs {
		oem := "No"
		if line.IsOEMClient {
			oem = "Yes"
		}
		rows = append(rows, map[string]string{
			"Invoice":    line.InvoiceNumber,
			"Customer":   line.CustomerName,
			"Date":       line.DateRecorded,
			"Total":      export.Money(line.TotalAmount),
			"Parts":      export.Money(line.PartsCost),
			"OEM":        oem,
			"Rate":       fmt.Sprintf("%.2f", line.Rate),
			"Commission": export.Money(line.Commission),
		})
	}
	return export.Dataset{Headers: statementHeaders, Rows: rows}
}
