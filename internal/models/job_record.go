package models

import "time"

// JobRecord is one serviced job / invoice line as imported from the field
// spreadsheets or entered manually.
type JobRecord struct {
	ID                string     `db:"id" json:"id"`
	InvoiceNumber     *string    `db:"invoice_number" json:"invoice_number"`
	CustomerName      string     `db:"customer_name" json:"customer_name"`
	ConsumerName      *string    `db:"consumer_name" json:"consumer_name,omitempty"`
	TechnicianCode    string     `db:"technician_code" json:"technician_code"`
	TotalAmount       float64    `db:"total_amount" json:"total_amount"`
	PartsCost         float64    `db:"parts_cost" json:"parts_cost"`
	MerchandiseSold   float64    `db:"merchandise_sold" json:"merchandise_sold"`
	PartsSold         float64    `db:"parts_sold" json:"parts_sold"`
	ServiceCallAmount float64    `db:"service_call_amount" json:"service_call_amount"`
	OtherLabor        float64    `db:"other_labor" json:"other_labor"`
	SalesTax          float64    `db:"sales_tax" json:"sales_tax"`
	TPMoneyReceived   float64    `db:"tp_money_received" json:"tp_money_received"`
	TypeServiced      string     `db:"type_serviced" json:"type_serviced"`
	MakeServiced      string     `db:"make_serviced" json:"make_serviced"`
	Dept              string     `db:"dept" json:"dept"`
	IsOEMClient       *bool      `db:"is_oem_client" json:"is_oem_client"`
	Paycode           *int       `db:"paycode" json:"paycode"`
	PriorPaycode2Date *string    `db:"prior_paycode2_date" json:"prior_paycode2_date,omitempty"`
	City              *string    `db:"city" json:"city"`
	State             *string    `db:"state" json:"state"`
	ZipCodeForJob     *string    `db:"zip_code_for_job" json:"zip_code_for_job"`
	DateRecorded      *time.Time `db:"date_recorded" json:"date_recorded"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ReturnCustomerPaycode marks a job belonging to a return customer.
const ReturnCustomerPaycode = 2

// IsReturnCustomer reports whether the record carries the return-customer paycode.
func (j *JobRecord) IsReturnCustomer() bool {
	return j.Paycode != nil && *j.Paycode == ReturnCustomerPaycode
}

// JobFilter constrains job-record queries. Dates are inclusive on date_recorded
// and applied before any aggregation, never inside it.
type JobFilter struct {
	Technician string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
