package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/importer"
	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
)

// Per-technician statement commission rates. Distinct from the overview rates
// in dashboard_service.go; see the rate table in DESIGN.md before touching
// either pair.
const (
	statementOEMRate    = 0.65
	statementNonOEMRate = 0.50
)

type approvedPartsLister interface {
	ListApprovedForJobs(ctx context.Context, invoiceNumbers []string) ([]models.PartCostRequest, error)
}

type technicianByCodeFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Technician, error)
}

// PayoutService builds per-technician payout statements. Per-job commission
// excludes the parts addback; approved technician-ordered parts are reimbursed
// once on top of the summed commissions.
type PayoutService struct {
	jobs        jobProvider
	partCosts   approvedPartsLister
	technicians technicianByCodeFinder
	logger      *zap.Logger
}

// PayoutServiceParams groups constructor dependencies.
type PayoutServiceParams struct {
	Jobs        jobProvider
	PartCosts   approvedPartsLister
	Technicians technicianByCodeFinder
	Logger      *zap.Logger
}

// NewPayoutService constructs a PayoutService.
func NewPayoutService(params PayoutServiceParams) *PayoutService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayoutService{
		jobs:        params.Jobs,
		partCosts:   params.PartCosts,
		technicians: params.Technicians,
		logger:      logger,
	}
}

// StatementCommission computes the per-job commission for a technician
// statement: labor times the statement rate, no parts addback.
func StatementCommission(record models.JobRecord) (rate, commission float64) {
	rate = statementNonOEMRate
	if record.IsOEMClient != nil && *record.IsOEMClient {
		rate = statementOEMRate
	}
	return rate, (record.TotalAmount - record.PartsCost) * rate
}

// Statement computes the payout statement for one technician over the filter
// window.
func (s *PayoutService) Statement(ctx context.Context, technicianCode string, filter models.JobFilter) (*dto.TechnicianPayout, error) {
	if technicianCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "technician code is required")
	}
	filter.Technician = technicianCode

	records, err := s.jobs.FetchAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch jobs for payout: %w", err)
	}

	payout := &dto.TechnicianPayout{TechnicianCode: technicianCode}
	invoiceNumbers := make([]string, 0, len(records))

	for _, record := range records {
		rate, commission := StatementCommission(record)
		line := dto.JobPayoutLine{
			CustomerName: record.CustomerName,
			DateRecorded: importer.FormatDate(record.DateRecorded),
			TotalAmount:  record.TotalAmount,
			PartsCost:    record.PartsCost,
			IsOEMClient:  record.IsOEMClient != nil && *record.IsOEMClient,
			Rate:         rate,
			Commission:   commission,
		}
		if record.InvoiceNumber != nil {
			line.InvoiceNumber = *record.InvoiceNumber
			invoiceNumbers = append(invoiceNumbers, *record.InvoiceNumber)
		}
		payout.Jobs = append(payout.Jobs, line)
		payout.TotalSales += record.TotalAmount
		payout.TotalCommission += commission
	}
	payout.TotalJobs = len(payout.Jobs)

	techParts, officeParts, err := s.reimbursableParts(ctx, technicianCode, invoiceNumbers)
	if err != nil {
		return nil, err
	}
	payout.TechPartsTotal = techParts
	payout.OfficePartsTotal = officeParts
	payout.TotalPayout = payout.TotalCommission + payout.TechPartsTotal

	sort.SliceStable(payout.Jobs, func(i, j int) bool {
		return payout.Jobs[i].DateRecorded > payout.Jobs[j].DateRecorded
	})
	return payout, nil
}

// reimbursableParts sums approved part-cost requests for the technician's
// jobs. Only requests filed by this technician count; office-ordered parts are
// tracked for display but never paid out.
func (s *PayoutService) reimbursableParts(ctx context.Context, technicianCode string, invoiceNumbers []string) (tech, office float64, err error) {
	if s.partCosts == nil || len(invoiceNumbers) == 0 {
		return 0, 0, nil
	}

	var technicianID string
	if s.technicians != nil {
		technician, err := s.technicians.FindByCode(ctx, technicianCode)
		if err == nil && technician != nil {
			technicianID = technician.ID
		} else if err != nil {
			// No login account for this code; reimbursements require one.
			s.logger.Debug("no technician account for payout reimbursements",
				zap.String("code", technicianCode), zap.Error(err))
			return 0, 0, nil
		}
	}

	approved, err := s.partCosts.ListApprovedForJobs(ctx, invoiceNumbers)
	if err != nil {
		return 0, 0, fmt.Errorf("list approved part costs: %w", err)
	}

	for _, request := range approved {
		if technicianID != "" && request.TechnicianID != technicianID {
			continue
		}
		switch request.PartsOrderedBy {
		case models.PartsOrderedByTechnician:
			tech += request.RequestedPartsCost
		case models.PartsOrderedByOffice:
			office += request.RequestedPartsCost
		}
	}
	return tech, office, nil
}

// Statements computes payouts for every technician code present in the filter
// window, sorted by code.
func (s *PayoutService) Statements(ctx context.Context, filter models.JobFilter, codes []string) ([]dto.TechnicianPayout, error) {
	sort.Strings(codes)
	payouts := make([]dto.TechnicianPayout, 0, len(codes))
	for _, code := range codes {
		payout, err := s.Statement(ctx, code, filter)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, *payout)
	}
	return payouts, nil
}
