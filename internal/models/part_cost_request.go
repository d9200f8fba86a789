package models

import "time"

// PartCostStatus captures workflow states for parts-cost corrections.
type PartCostStatus string

const (
	PartCostStatusPending  PartCostStatus = "PENDING"
	PartCostStatusApproved PartCostStatus = "APPROVED"
	PartCostStatusRejected PartCostStatus = "REJECTED"
)

/// PartsOrderedBy determines reimbursement eligibility: parts the technician
// bought out of pocket are reimbursed, office-ordered parts are not.
type PartsOrderedBy string

const (
	PartsOrderedByTechnician PartsOrderedBy = "TECHNICIAN"
	PartsOrderedByOffice     PartsOrderedBy = "OFFICE"
)

// PartCostRequest is a proposed correction to a job's parts cost, submitted by
// a technician and reviewed once by an admin.
type PartCostRequest struct {
	ID                 string         `db:"id" json:"id"`
	JobInvoiceNumber   string         `db:"job_invoice_number" json:"job_invoice_number"`
	TechnicianID       string         `db:"technician_id" json:"technician_id"`
	CurrentPartsCost   float64        `db:"current_parts_cost" json:"current_parts_cost"`
	RequestedPartsCost float64        `db:"requested_parts_cost" json:"requested_parts_cost"`
	Notes              string         `db:"notes" json:"notes"`
	Status             PartCostStatus `db:"status" json:"status"`
	PartsOrderedBy     PartsOrderedBy `db:"parts_ordered_by" json:"parts_ordered_by"`
	AdminNotes         *string        `db:"admin_notes" json:"admin_notes,omitempty"`
	ApprovedBy         *string        `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt         *time.Time     `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// PartCostFilter constrains listing queries.
type PartCostFilter struct {
	Status       []PartCostStatus
	TechnicianID string
	OrderedBy    PartsOrderedBy
	Limit        int
	Offset       int
}
