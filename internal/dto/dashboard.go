package dto

// StateSales is one bucket of the by-state breakdown, sorted descending by sales.
type StateSales struct {
	State string  `json:"state"`
	Sales float64 `json:"sales"`
	Count int     `json:"count"`
}

// DashboardMetrics is the fixed-shape overview computed from the filtered
// job-record set. Every ratio defaults to 0 when its denominator is zero.
type DashboardMetrics struct {
	TotalJobs     int     `json:"total_jobs"`
	TotalSales    float64 `json:"total_sales"`
	TotalParts    float64 `json:"total_parts"`
	TotalLabor    float64 `json:"total_labor"`
	AvgSalePerJob float64 `json:"avg_sale_per_job"`

	PartsSalesRatio float64 `json:"parts_sales_ratio"`
	LaborSalesRatio float64 `json:"labor_sales_ratio"`

	ServiceCallCount           int     `json:"service_call_count"`
	TotalServiceCallSales      float64 `json:"total_service_call_sales"`
	ServiceCallPercentage      float64 `json:"service_call_percentage"`
	ServiceCallToTotalSalesPct float64 `json:"service_call_to_total_sales_ratio"`

	InvoiceCount int `json:"invoice_count"`

	SalesByState []StateSales `json:"sales_by_state"`

	ReturnCustomerCount      int     `json:"return_customer_count"`
	ReturnCustomerPercentage float64 `json:"return_customer_percentage"`

	TotalPartProfit float64 `json:"total_part_profit"`
	AvgPartProfit   float64 `json:"avg_part_profit"`

	OEMJobsCount    int     `json:"oem_jobs_count"`
	NonOEMJobsCount int     `json:"non_oem_jobs_count"`
	OEMSales        float64 `json:"oem_sales"`
	NonOEMSales     float64 `json:"non_oem_sales"`

	JobsThisMonth  int     `json:"jobs_this_month"`
	SalesThisMonth float64 `json:"sales_this_month"`

	TotalPayout      float64 `json:"total_payout"`
	TotalTechnicians int     `json:"total_technicians"`
}
