package dto

// BackfillResult reports one idempotent repair pass. Running the pass twice on
// the same data leaves the second run's counters at zero.
type BackfillResult struct {
	UpdatedInvoices int    `json:"updated_invoices"`
	UpdatedZips     int    `json:"updated_zips"`
	Skipped         int    `json:"skipped"`
	NextInvoice     string `json:"next_invoice,omitempty"`
}
