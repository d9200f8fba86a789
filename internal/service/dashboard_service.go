package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/importer"
	"github.com/fieldserve/payout-api/internal/models"
)

// Overview commission rates. These deliberately differ from the per-technician
// statement rates in payout_service.go; both rate pairs are live in production
// and must not be unified.
const (
	overviewOEMRate    = 0.065
	overviewNonOEMRate = 0.5
)

// serviceCallAmounts are the fixed billing amounts that always classify a job
// as a service call, regardless of parts cost.
var serviceCallAmounts = map[float64]struct{}{
	74.95: {},
	89.45: {},
	75:    {},
	90:    {},
}

type jobProvider interface {
	FetchAll(ctx context.Context, filter models.JobFilter) ([]models.JobRecord, error)
}

type technicianCounter interface {
	Count(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService computes the overview metrics block from the filtered job
// set. Aggregation always runs over the fully materialized in-memory slice;
// nothing is pushed down into SQL so the arithmetic is reproducible.
type DashboardService struct {
	jobs        jobProvider
	technicians technicianCounter
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Jobs        jobProvider
	Technicians technicianCounter
	Cache       *CacheService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		jobs:        params.Jobs,
		technicians: params.Technicians,
		cache:       params.Cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Overview returns the dashboard metrics for the filter and reports whether
// the payload came from cache.
func (s *DashboardService) Overview(ctx context.Context, filter models.JobFilter) (*dto.DashboardMetrics, bool, error) {
	cacheKey := overviewCacheKey(filter)
	if s.cache != nil {
		var cached dto.DashboardMetrics
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	records, err := s.jobs.FetchAll(ctx, filter)
	if err != nil {
		// The overview degrades to the zero-value metric set on a backend
		// failure; the warning keeps the failure visible to operators.
		s.logger.Warn("job fetch failed, serving zero-value metrics", zap.Error(err))
		metrics := ComputeMetrics(nil, s.now().UTC())
		return &metrics, false, nil
	}

	metrics := ComputeMetrics(records, s.now().UTC())

	if s.technicians != nil {
		total, err := s.technicians.Count(ctx)
		if err != nil {
			// Headcount is cosmetic on the overview; serve the rest.
			s.logger.Warn("technician count failed", zap.Error(err))
		} else {
			metrics.TotalTechnicians = total
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, metrics, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("overview cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return &metrics, false, nil
}

func overviewCacheKey(filter models.JobFilter) string {
	return fmt.Sprintf("dash:overview:%s:%s:%s",
		filter.Technician,
		importer.FormatDate(filter.StartDate),
		importer.FormatDate(filter.EndDate))
}

// IsServiceCall reports whether a job matches the service-call heuristic: an
// exact match against the fixed billing amounts, or a parts-free job billed in
// the 70..100 band.
func IsServiceCall(record models.JobRecord) bool {
	if _, ok := serviceCallAmounts[record.TotalAmount]; ok {
		return true
	}
	return record.TotalAmount >= 70 && record.TotalAmount <= 100 && record.PartsCost == 0
}

// OverviewPayout computes the dashboard-level payout for one job:
// labor times the overview rate, plus the parts cost added back.
func OverviewPayout(record models.JobRecord) float64 {
	rate := overviewNonOEMRate
	if record.IsOEMClient != nil && *record.IsOEMClient {
		rate = overviewOEMRate
	}
	return (record.TotalAmount-record.PartsCost)*rate + record.PartsCost
}

// ComputeMetrics reduces the materialized job set into the fixed-shape
// overview block. Every ratio is 0 when its denominator is zero. The now
// argument anchors the jobs-this-month window.
func ComputeMetrics(records []models.JobRecord, now time.Time) dto.DashboardMetrics {
	metrics := dto.DashboardMetrics{TotalJobs: len(records)}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	invoices := make(map[string]struct{})
	stateBuckets := make(map[string]*dto.StateSales)

	for _, record := range records {
		metrics.TotalSales += record.TotalAmount
		metrics.TotalParts += record.PartsCost
		metrics.TotalPartProfit += record.PartsSold - record.PartsCost
		metrics.TotalPayout += OverviewPayout(record)

		if IsServiceCall(record) {
			metrics.ServiceCallCount++
			metrics.TotalServiceCallSales += record.TotalAmount
		}
		if record.IsReturnCustomer() {
			metrics.ReturnCustomerCount++
		}

		if record.InvoiceNumber != nil && *record.InvoiceNumber != "" {
			invoices[*record.InvoiceNumber] = struct{}{}
		}

		state := "Unknown"
		if record.State != nil && *record.State != "" {
			state = *record.State
		}
		bucket, ok := stateBuckets[state]
		if !ok {
			bucket = &dto.StateSales{State: state}
			stateBuckets[state] = bucket
		}
		bucket.Sales += record.TotalAmount
		bucket.Count++

		if record.IsOEMClient != nil {
			if *record.IsOEMClient {
				metrics.OEMJobsCount++
				metrics.OEMSales += record.TotalAmount
			} else {
				metrics.NonOEMJobsCount++
				metrics.NonOEMSales += record.TotalAmount
			}
		}

		if record.DateRecorded != nil && !record.DateRecorded.Before(monthStart) {
			metrics.JobsThisMonth++
			metrics.SalesThisMonth += record.TotalAmount
		}
	}

	metrics.TotalLabor = metrics.TotalSales - metrics.TotalParts
	metrics.InvoiceCount = len(invoices)

	if metrics.TotalJobs > 0 {
		jobs := float64(metrics.TotalJobs)
		metrics.AvgSalePerJob = metrics.TotalSales / jobs
		metrics.ServiceCallPercentage = float64(metrics.ServiceCallCount) / jobs * 100
		metrics.ReturnCustomerPercentage = float64(metrics.ReturnCustomerCount) / jobs * 100
		metrics.AvgPartProfit = metrics.TotalPartProfit / jobs
	}
	if metrics.TotalSales > 0 {
		metrics.PartsSalesRatio = metrics.TotalParts / metrics.TotalSales * 100
		metrics.LaborSalesRatio = metrics.TotalLabor / metrics.TotalSales * 100
		metrics.ServiceCallToTotalSalesPct = metrics.TotalServiceCallSales / metrics.TotalSales * 100
	}

	metrics.SalesByState = make([]dto.StateSales, 0, len(stateBuckets))
	for _, bucket := range stateBuckets {
		metrics.SalesByState = append(metrics.SalesByState, *bucket)
	}
	sort.Slice(metrics.SalesByState, func(i, j int) bool {
		return metrics.SalesByState[i].Sales > metrics.SalesByState[j].Sales
	})

	return metrics
}
