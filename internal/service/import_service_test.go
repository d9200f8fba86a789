package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/models"
	"github.com/fieldserve/payout-api/pkg/jobs"
)

func jobForTest(payload importPayload) jobs.Job {
	return jobs.Job{ID: payload.importID, Type: "job-import", Payload: payload}
}

type fakeBatchInserter struct {
	batches  [][]models.JobRecord
	failures int
}

func (f *fakeBatchInserter) InsertBatch(_ context.Context, records []models.JobRecord) error {
	if f.failures > 0 {
		f.failures--
		return context.DeadlineExceeded
	}
	batch := make([]models.JobRecord, len(records))
	copy(batch, records)
	f.batches = append(f.batches, batch)
	return nil
}

func newTestImportService(inserter *fakeBatchInserter) *ImportService {
	return NewImportService(ImportServiceParams{
		Jobs:   inserter,
		Logger: zap.NewNop(),
		Config: ImportServiceConfig{BatchSize: 100, BatchDelay: time.Millisecond},
	})
}

func TestImportRunSplitsBatches(t *testing.T) {
	inserter := &fakeBatchInserter{}
	svc := newTestImportService(inserter)

	records := make([]models.JobRecord, 250)
	result, err := svc.runImport(context.Background(), importPayload{importID: "imp-1", records: records})
	require.NoError(t, err)

	assert.Equal(t, 250, result.TotalRows)
	assert.Equal(t, 250, result.InsertedRows)
	assert.Zero(t, result.FailedRows)
	assert.Equal(t, 3, result.Batches)
	require.Len(t, inserter.batches, 3)
	assert.Len(t, inserter.batches[0], 100)
	assert.Len(t, inserter.batches[2], 50)
}

func TestImportRunCountsFailedBatches(t *testing.T) {
	inserter := &fakeBatchInserter{failures: 1}
	svc := newTestImportService(inserter)

	records := make([]models.JobRecord, 150)
	result, err := svc.runImport(context.Background(), importPayload{importID: "imp-2", records: records})
	require.NoError(t, err)

	assert.Equal(t, 100, result.FailedRows)
	assert.Equal(t, 50, result.InsertedRows)
	assert.Equal(t, 2, result.Batches)
}

func TestImportBatchSizeClamped(t *testing.T) {
	svc := NewImportService(ImportServiceParams{
		Jobs:   &fakeBatchInserter{},
		Config: ImportServiceConfig{BatchSize: 5000},
	})
	assert.Equal(t, defaultImportBatchSize, svc.cfg.BatchSize)

	svc = NewImportService(ImportServiceParams{
		Jobs:   &fakeBatchInserter{},
		Config: ImportServiceConfig{BatchSize: 10},
	})
	assert.Equal(t, defaultImportBatchSize, svc.cfg.BatchSize)
}

func TestImportEnqueueRejectsEmptyUpload(t *testing.T) {
	svc := newTestImportService(&fakeBatchInserter{})
	svc.Start(context.Background())
	defer svc.Stop()

	_, err := svc.Enqueue(context.Background(), []byte("customer_name,total_amount\n"), dto.ImportFormatCSV)
	require.Error(t, err)

	_, err = svc.Enqueue(context.Background(), []byte("garbage"), dto.ImportFormat("parquet"))
	require.Error(t, err)
}

func TestImportStatusLifecycle(t *testing.T) {
	svc := newTestImportService(&fakeBatchInserter{})

	unknown := svc.Status("missing")
	assert.Equal(t, dto.ImportStateNotFound, unknown.State)

	payload := importPayload{importID: "imp-3", records: make([]models.JobRecord, 5)}
	svc.setStatus(dto.ImportStatus{ImportID: payload.importID, State: dto.ImportStateQueued})

	require.NoError(t, svc.handleImportJob(context.Background(), jobForTest(payload)))
	status := svc.Status(payload.importID)
	assert.Equal(t, dto.ImportStateDone, status.State)
	require.NotNil(t, status.Result)
	assert.Equal(t, 5, status.Result.InsertedRows)
}
