package dto

// JobPayoutLine is a per-job commission entry in a technician statement.
type JobPayoutLine struct {
	InvoiceNumber string  `json:"invoice_number,omitempty"`
	CustomerName  string  `json:"customer_name"`
	DateRecorded  string  `json:"date_recorded,omitempty"`
	TotalAmount   float64 `json:"total_amount"`
	PartsCost     float64 `json:"parts_cost"`
	IsOEMClient   bool    `json:"is_oem_client"`
	Rate          float64 `json:"rate"`
	Commission    float64 `json:"commission"`
}

// TechnicianPayout is the enhanced per-technician payout statement.
// Commission excludes the parts addback; approved technician-ordered parts are
// reimbursed once on top.
type TechnicianPayout struct {
	TechnicianCode   string          `json:"technician_code"`
	Jobs             []JobPayoutLine `json:"jobs"`
	TotalJobs        int             `json:"total_jobs"`
	TotalSales       float64         `json:"total_sales"`
	TotalCommission  float64         `json:"total_commission"`
	TechPartsTotal   float64         `json:"tech_parts_total"`
	OfficePartsTotal float64         `json:"office_parts_total"`
	TotalPayout      float64         `json:"total_payout"`
}
