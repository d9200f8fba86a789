package dto

import "time"

// ImportFormat identifies the uploaded document type.
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatTSV  ImportFormat = "tsv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ImportResult summarises one completed import run.
type ImportResult struct {
	ImportID     string    `json:"import_id"`
	TotalRows    int       `json:"total_rows"`
	InsertedRows int       `json:"inserted_rows"`
	FailedRows   int       `json:"failed_rows"`
	Batches      int       `json:"batches"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// ImportState tracks an asynchronous import run.
type ImportState string

const (
	ImportStateQueued   ImportState = "QUEUED"
	ImportStateRunning  ImportState = "RUNNING"
	ImportStateDone     ImportState = "DONE"
	ImportStateFailed   ImportState = "FAILED"
	ImportStateNotFound ImportState = "NOT_FOUND"
)

// ImportStatus is the polling payload for a queued import.
type ImportStatus struct {
	ImportID string        `json:"import_id"`
	State    ImportState   `json:"state"`
	Result   *ImportResult `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}
