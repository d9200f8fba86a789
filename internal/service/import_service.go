package service

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/importer"
	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
	"github.com/fieldserve/payout-api/pkg/jobs"
)

const (
	minImportBatchSize     = 100
	maxImportBatchSize     = 1000
	defaultImportBatchSize = 500
)

type batchInserter interface {
	InsertBatch(ctx context.Context, records []models.JobRecord) error
}

type importMetrics interface {
	RecordImportedRows(rows int)
}

// ImportServiceConfig tunes batch sizing and throttling.
type ImportServiceConfig struct {
	BatchSize  int
	BatchDelay time.Duration
	Workers    int
}

// ImportService ingests CSV, TSV or XLSX job spreadsheets. Uploads are parsed
// synchronously, then inserted batch by batch on a background queue with a
// short delay between batches to stay under the database's write limits.
type ImportService struct {
	jobs    batchInserter
	cache   *CacheService
	metrics importMetrics
	queue   *jobs.Queue
	logger  *zap.Logger
	cfg     ImportServiceConfig

	mu     sync.RWMutex
	status map[string]dto.ImportStatus
}

// ImportServiceParams groups constructor dependencies.
type ImportServiceParams struct {
	Jobs    batchInserter
	Cache   *CacheService
	Metrics importMetrics
	Logger  *zap.Logger
	Config  ImportServiceConfig
}

// NewImportService constructs an ImportService. Start must be called before
// enqueueing imports.
func NewImportService(params ImportServiceParams) *ImportService {
	cfg := params.Config
	if cfg.BatchSize < minImportBatchSize || cfg.BatchSize > maxImportBatchSize {
		cfg.BatchSize = defaultImportBatchSize
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 200 * time.Millisecond
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ImportService{
		jobs:    params.Jobs,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		cfg:     cfg,
		status:  make(map[string]dto.ImportStatus),
	}
	s.queue = jobs.NewQueue("job-import", s.handleImportJob, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the background workers.
func (s *ImportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *ImportService) Stop() {
	s.queue.Stop()
}

type importPayload struct {
	importID string
	records  []models.JobRecord
}

// Enqueue parses the raw upload, validates its header row and queues the
// insert. The returned status carries the import ID for polling.
func (s *ImportService) Enqueue(ctx context.Context, raw []byte, format dto.ImportFormat) (*dto.ImportStatus, error) {
	doc, err := s.parse(raw, format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if len(doc.Rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "upload contains no data rows")
	}
	if unknown := importer.ValidateHeaders(doc.Headers); len(unknown) > 0 {
		s.logger.Info("import has unrecognized columns", zap.Strings("columns", unknown))
	}

	records := make([]models.JobRecord, 0, len(doc.Rows))
	for _, row := range doc.Rows {
		records = append(records, importer.Normalize(row))
	}

	importID := uuid.NewString()
	status := dto.ImportStatus{ImportID: importID, State: dto.ImportStateQueued}
	s.setStatus(status)

	if err := s.queue.Enqueue(jobs.Job{
		ID:      importID,
		Type:    "job-import",
		Payload: importPayload{importID: importID, records: records},
	}); err != nil {
		s.setStatus(dto.ImportStatus{ImportID: importID, State: dto.ImportStateFailed, Error: err.Error()})
		return nil, fmt.Errorf("enqueue import: %w", err)
	}
	return &status, nil
}

// Status returns the current state of an import run.
func (s *ImportService) Status(importID string) dto.ImportStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status, ok := s.status[importID]; ok {
		return status
	}
	return dto.ImportStatus{ImportID: importID, State: dto.ImportStateNotFound}
}

func (s *ImportService) parse(raw []byte, format dto.ImportFormat) (*importer.Document, error) {
	switch format {
	case dto.ImportFormatCSV:
		return importer.ParseDocument(string(raw), false)
	case dto.ImportFormatTSV:
		return importer.ParseDocument(string(raw), true)
	case dto.ImportFormatXLSX:
		return importer.ParseXLSX(bytes.NewReader(raw))
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
}

func (s *ImportService) handleImportJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(importPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	s.setStatus(dto.ImportStatus{ImportID: payload.importID, State: dto.ImportStateRunning})

	result, err := s.runImport(ctx, payload)
	if err != nil {
		s.setStatus(dto.ImportStatus{ImportID: payload.importID, State: dto.ImportStateFailed, Error: err.Error()})
		return err
	}

	s.setStatus(dto.ImportStatus{ImportID: payload.importID, State: dto.ImportStateDone, Result: result})
	return nil
}

func (s *ImportService) runImport(ctx context.Context, payload importPayload) (*dto.ImportResult, error) {
	result := &dto.ImportResult{
		ImportID:  payload.importID,
		TotalRows: len(payload.records),
		StartedAt: time.Now().UTC(),
	}

	for start := 0; start < len(payload.records); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(payload.records) {
			end = len(payload.records)
		}
		batch := payload.records[start:end]

		if err := s.jobs.InsertBatch(ctx, batch); err != nil {
			result.FailedRows += len(batch)
			s.logger.Error("import batch failed",
				zap.String("import_id", payload.importID),
				zap.Int("batch", result.Batches+1),
				zap.Error(err))
			result.Batches++
			continue
		}
		result.InsertedRows += len(batch)
		result.Batches++
		if s.metrics != nil {
			s.metrics.RecordImportedRows(len(batch))
		}

		// Fixed pause between batches; throttling, not concurrency control.
		if end < len(payload.records) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.BatchDelay):
			}
		}
	}
	result.FinishedAt = time.Now().UTC()

	if result.InsertedRows > 0 && s.cache != nil {
		if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
			s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
		}
		if err := s.cache.Invalidate(ctx, "clients:*"); err != nil {
			s.logger.Warn("client cache invalidation failed", zap.Error(err))
		}
	}

	s.logger.Info("import finished",
		zap.String("import_id", payload.importID),
		zap.Int("inserted", result.InsertedRows),
		zap.Int("failed", result.FailedRows),
		zap.Int("batches", result.Batches))
	return result, nil
}

func (s *ImportService) setStatus(status dto.ImportStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[status.ImportID] = status
}
