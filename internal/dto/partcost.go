package dto

import "github.com/fieldserve/payout-api/internal/models"

// CreatePartCostRequest is the technician-facing submission payload.
type CreatePartCostRequest struct {
	JobInvoiceNumber   string                `json:"job_invoice_number" validate:"required"`
	CurrentPartsCost   float64               `json:"current_parts_cost" validate:"gte=0"`
	RequestedPartsCost float64               `json:"requested_parts_cost" validate:"gte=0"`
	Notes              string                `json:"notes" validate:"required"`
	PartsOrderedBy     models.PartsOrderedBy `json:"parts_ordered_by" validate:"required,oneof=TECHNICIAN OFFICE"`
}

// ReviewPartCostRequest is the admin decision payload.
type ReviewPartCostRequest struct {
	Status     models.PartCostStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	AdminNotes string                `json:"admin_notes"`
}

// PartCostQuery shapes listing requests.
type PartCostQuery struct {
	Status    []models.PartCostStatus
	OrderedBy models.PartsOrderedBy
	Limit     int
	Offset    int
}
