package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/models"
	"github.com/fieldserve/payout-api/internal/repository"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
)

type partCostStore interface {
	Create(ctx context.Context, request *models.PartCostRequest) error
	GetByID(ctx context.Context, id string) (*models.PartCostRequest, error)
	List(ctx context.Context, filter models.PartCostFilter) ([]models.PartCostRequest, error)
	UpdateReview(ctx context.Context, params repository.ReviewParams) error
	ApplyApprovedCost(ctx context.Context, invoiceNumber string, partsCost float64) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// PartCostService runs the parts-cost correction workflow: technicians submit
// a proposed cost for one of their jobs, an admin reviews it exactly once, and
// an approval writes the new cost back onto the job record.
type PartCostService struct {
	repo     partCostStore
	audit    auditWriter
	cache    *CacheService
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// PartCostServiceParams groups constructor dependencies.
type PartCostServiceParams struct {
	Repo   partCostStore
	Audit  auditWriter
	Cache  *CacheService
	Logger *zap.Logger
}

// NewPartCostService constructs a PartCostService.
func NewPartCostService(params PartCostServiceParams) *PartCostService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartCostService{
		repo:     params.Repo,
		audit:    params.Audit,
		cache:    params.Cache,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Submit files a new correction request on behalf of a technician.
func (s *PartCostService) Submit(ctx context.Context, req dto.CreatePartCostRequest, technicianID string) (*models.PartCostRequest, error) {
	if technicianID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "technician identity is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	request := &models.PartCostRequest{
		JobInvoiceNumber:   req.JobInvoiceNumber,
		TechnicianID:       technicianID,
		CurrentPartsCost:   req.CurrentPartsCost,
		RequestedPartsCost: req.RequestedPartsCost,
		Notes:              req.Notes,
		Status:             models.PartCostStatusPending,
		PartsOrderedBy:     req.PartsOrderedBy,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create part cost request")
	}
	return request, nil
}

// List returns requests visible to the caller. Technicians only ever see
// their own; admins see everything.
func (s *PartCostService) List(ctx context.Context, query dto.PartCostQuery, callerID string, callerRole models.Role) ([]models.PartCostRequest, error) {
	filter := models.PartCostFilter{
		Status:    query.Status,
		OrderedBy: query.OrderedBy,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	if callerRole != models.RoleAdmin {
		filter.TechnicianID = callerID
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list part cost requests")
	}
	return requests, nil
}

// Get fetches one request, enforcing ownership for technicians.
func (s *PartCostService) Get(ctx context.Context, id, callerID string, callerRole models.Role) (*models.PartCostRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "part cost request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load part cost request")
	}
	if callerRole != models.RoleAdmin && request.TechnicianID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your request")
	}
	return request, nil
}

// Review finalizes a pending request. Approval also writes the requested cost
// back to the job record so every later payout uses the corrected value.
func (s *PartCostService) Review(ctx context.Context, id string, req dto.ReviewPartCostRequest, adminID string) (*models.PartCostRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "part cost request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load part cost request")
	}
	if request.Status != models.PartCostStatusPending {
		return nil, appErrors.ErrAlreadyReviewed
	}

	reviewedAt := s.now().UTC()
	var adminNotes *string
	if req.AdminNotes != "" {
		adminNotes = &req.AdminNotes
	}
	err = s.repo.UpdateReview(ctx, repository.ReviewParams{
		ID:         id,
		Status:     req.Status,
		AdminNotes: adminNotes,
		ReviewedBy: adminID,
		ReviewedAt: reviewedAt,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race with another reviewer.
			return nil, appErrors.ErrAlreadyReviewed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update review")
	}

	request.Status = req.Status
	request.AdminNotes = adminNotes
	request.ApprovedBy = &adminID
	request.ApprovedAt = &reviewedAt

	if req.Status == models.PartCostStatusApproved {
		if err := s.repo.ApplyApprovedCost(ctx, request.JobInvoiceNumber, request.RequestedPartsCost); err != nil {
			s.logger.Error("failed to apply approved parts cost",
				zap.String("invoice", request.JobInvoiceNumber), zap.Error(err))
		}
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, "dash:*"); err != nil {
				s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
			}
		}
	}

	s.emitAudit(ctx, adminID, request)
	return request, nil
}

func (s *PartCostService) emitAudit(ctx context.Context, adminID string, request *models.PartCostRequest) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"status":               request.Status,
		"requested_parts_cost": request.RequestedPartsCost,
		"job_invoice_number":   request.JobInvoiceNumber,
	})
	if err != nil {
		payload = []byte("{}")
	}
	entry := &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionPartCostReview,
		Resource:   "part_cost_requests",
		ResourceID: &request.ID,
		NewValues:  payload,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("part cost audit write failed", zap.Error(err))
	}
}
