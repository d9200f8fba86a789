package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
)

type jobLister interface {
	List(ctx context.Context, filter models.JobFilter, page, pageSize int) ([]models.JobRecord, int, error)
	DistinctTechnicianCodes(ctx context.Context, filter models.JobFilter) ([]string, error)
}

// JobService serves paginated record listings for the dashboard table views.
type JobService struct {
	repo     jobLister
	logger   *zap.Logger
	pageSize int
}

// NewJobService constructs a JobService.
func NewJobService(repo jobLister, logger *zap.Logger, pageSize int) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &JobService{repo: repo, logger: logger, pageSize: pageSize}
}

// List returns one page of job records plus pagination metadata.
func (s *JobService) List(ctx context.Context, filter models.JobFilter, page, pageSize int) ([]models.JobRecord, *models.Pagination, error) {
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	records, total, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list job records")
	}
	if page < 1 {
		page = 1
	}
	return records, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// TechnicianCodes lists the technician codes present in the job table, used
// to drive payout statement selection.
func (s *JobService) TechnicianCodes(ctx context.Context, filter models.JobFilter) ([]string, error) {
	codes, err := s.repo.DistinctTechnicianCodes(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list technician codes")
	}
	return codes, nil
}
