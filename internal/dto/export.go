package dto

import "time"

// ExportFormat selects the statement rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult references a generated payout statement.
type ExportResult struct {
	ExportID  string       `json:"export_id"`
	Format    ExportFormat `json:"format"`
	Token     string       `json:"token"`
	URL       string       `json:"url"`
	ExpiresAt time.Time    `json:"expires_at"`
}
