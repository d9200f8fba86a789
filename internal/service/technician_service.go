package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
)

type technicianStore interface {
	List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error)
	FindByID(ctx context.Context, id string) (*models.Technician, error)
	FindByCode(ctx context.Context, code string) (*models.Technician, error)
	Create(ctx context.Context, technician *models.Technician) error
	Update(ctx context.Context, technician *models.Technician) error
	Deactivate(ctx context.Context, id string) error
}

// CreateTechnicianRequest is the admin payload for onboarding an account.
type CreateTechnicianRequest struct {
	Code     string      `json:"code" validate:"required"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	FullName string      `json:"full_name" validate:"required"`
	Role     models.Role `json:"role" validate:"required,oneof=ADMIN TECHNICIAN"`
}

// UpdateTechnicianRequest carries mutable profile fields.
type UpdateTechnicianRequest struct {
	Email    *string      `json:"email" validate:"omitempty,email"`
	FullName *string      `json:"full_name"`
	Role     *models.Role `json:"role" validate:"omitempty,oneof=ADMIN TECHNICIAN"`
	Active   *bool        `json:"active"`
}

// TechnicianService manages technician accounts.
type TechnicianService struct {
	repo     technicianStore
	logger   *zap.Logger
	validate *validator.Validate
}

// NewTechnicianService constructs a TechnicianService.
func NewTechnicianService(repo technicianStore, logger *zap.Logger) *TechnicianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechnicianService{repo: repo, logger: logger, validate: validator.New()}
}

// List returns accounts matching the filter plus total count.
func (s *TechnicianService) List(ctx context.Context, filter models.TechnicianFilter) ([]models.Technician, int, error) {
	technicians, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list technicians")
	}
	return technicians, total, nil
}

// Get fetches one account.
func (s *TechnicianService) Get(ctx context.Context, id string) (*models.Technician, error) {
	technician, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "technician not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technician")
	}
	return technician, nil
}

// Create onboards a new account. Codes are unique payroll identifiers.
func (s *TechnicianService) Create(ctx context.Context, req CreateTechnicianRequest) (*models.Technician, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if existing, err := s.repo.FindByCode(ctx, code); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "technician code already in use")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check technician code")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	technician := &models.Technician{
		Code:         code,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, technician); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create technician")
	}
	return technician, nil
}

// Update applies partial profile changes.
func (s *TechnicianService) Update(ctx context.Context, id string, req UpdateTechnicianRequest) (*models.Technician, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	technician, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		technician.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FullName != nil {
		technician.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		technician.Role = *req.Role
	}
	if req.Active != nil {
		technician.Active = *req.Active
	}

	if err := s.repo.Update(ctx, technician); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update technician")
	}
	return technician, nil
}

// Deactivate disables an account while keeping its job history intact.
func (s *TechnicianService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate technician")
	}
	return nil
}
