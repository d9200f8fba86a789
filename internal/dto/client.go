package dto

// MonthlyBucket aggregates one YYYY-MM slice of a customer's history.
type MonthlyBucket struct {
	Month string  `json:"month"`
	Sales float64 `json:"sales"`
	Jobs  int     `json:"jobs"`
	Parts float64 `json:"parts"`
	Labor float64 `json:"labor"`
}

// ClientSummary is the derived per-customer rollup. It is never persisted.
type ClientSummary struct {
	CustomerName    string          `json:"customer_name"`
	TotalSales      float64         `json:"total_sales"`
	TotalJobs       int             `json:"total_jobs"`
	AvgSalePerJob   float64         `json:"avg_sale_per_job"`
	TotalParts      float64         `json:"total_parts"`
	TotalLabor      float64         `json:"total_labor"`
	FirstJobDate    string          `json:"first_job_date,omitempty"`
	LastJobDate     string          `json:"last_job_date,omitempty"`
	ReturnCustomer  bool            `json:"return_customer"`
	City            string          `json:"city,omitempty"`
	State           string          `json:"state,omitempty"`
	YearToDateSales float64         `json:"year_to_date_sales"`
	MonthlyData     []MonthlyBucket `json:"monthly_data"`
}

// ClientSortKey selects the rollup ordering.
type ClientSortKey string

const (
	ClientSortTotalSales    ClientSortKey = "totalSales"
	ClientSortTotalJobs     ClientSortKey = "totalJobs"
	ClientSortAvgSalePerJob ClientSortKey = "avgSalePerJob"
	ClientSortLastJobDate   ClientSortKey = "lastJobDate"
)

// ClientQuery shapes the rollup request.
type ClientQuery struct {
	SortBy     ClientSortKey `json:"sort_by"`
	Descending bool          `json:"descending"`
	Limit      int           `json:"limit"`
}
