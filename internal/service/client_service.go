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

// UnknownCustomerBucket collects jobs whose customer name is empty.
const UnknownCustomerBucket = "Unknown Customer"

// ClientServiceConfig tunes rollup behaviour.
type ClientServiceConfig struct {
	CacheTTL     time.Duration
	DefaultLimit int
}

// ClientService derives per-customer rollups from the job set. Summaries are
// never persisted; they are recomputed (or served from cache) per request.
type ClientService struct {
	jobs   jobProvider
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    ClientServiceConfig
}

// ClientServiceParams groups constructor dependencies.
type ClientServiceParams struct {
	Jobs   jobProvider
	Cache  *CacheService
	Logger *zap.Logger
	Config ClientServiceConfig
}

// NewClientService constructs a ClientService.
func NewClientService(params ClientServiceParams) *ClientService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 25
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{
		jobs:   params.Jobs,
		cache:  params.Cache,
		logger: logger,
		now:    time.Now,
		cfg:    cfg,
	}
}

// TopClients returns the sorted, truncated client rollup for the filter and
// reports cache utilisation.
func (s *ClientService) TopClients(ctx context.Context, filter models.JobFilter, query dto.ClientQuery) ([]dto.ClientSummary, bool, error) {
	if query.Limit <= 0 {
		query.Limit = s.cfg.DefaultLimit
	}
	if query.SortBy == "" {
		query.SortBy = dto.ClientSortTotalSales
		query.Descending = true
	}

	cacheKey := fmt.Sprintf("clients:%s:%s:%s:%s:%t:%d",
		filter.Technician,
		importer.FormatDate(filter.StartDate),
		importer.FormatDate(filter.EndDate),
		query.SortBy, query.Descending, query.Limit)
	if s.cache != nil {
		var cached []dto.ClientSummary
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil && hit {
			return cached, true, nil
		}
	}

	records, err := s.jobs.FetchAll(ctx, filter)
	if err != nil {
		// Same degradation as the dashboard: an empty rollup instead of a
		// failed page, with the backend failure logged.
		s.logger.Warn("job fetch failed, serving empty client rollup", zap.Error(err))
		return []dto.ClientSummary{}, false, nil
	}

	summaries := RollupClients(records, s.now().UTC())
	SortClients(summaries, query.SortBy, query.Descending)
	if len(summaries) > query.Limit {
		summaries = summaries[:query.Limit]
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summaries, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("client rollup cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summaries, false, nil
}

type clientAccumulator struct {
	summary    dto.ClientSummary
	firstDate  *time.Time
	lastDate   *time.Time
	latestJob  *models.JobRecord
	monthlyAcc map[string]*dto.MonthlyBucket
}

// RollupClients groups the job set by customer name and derives each group's
// summary. City and state come from the group's most recent job, not from any
// aggregate.
func RollupClients(records []models.JobRecord, now time.Time) []dto.ClientSummary {
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	groups := make(map[string]*clientAccumulator)

	for i := range records {
		record := &records[i]
		name := record.CustomerName
		if name == "" {
			name = UnknownCustomerBucket
		}

		acc, ok := groups[name]
		if !ok {
			acc = &clientAccumulator{
				summary:    dto.ClientSummary{CustomerName: name},
				monthlyAcc: make(map[string]*dto.MonthlyBucket),
			}
			groups[name] = acc
		}

		acc.summary.TotalJobs++
		acc.summary.TotalSales += record.TotalAmount
		acc.summary.TotalParts += record.PartsCost
		if record.IsReturnCustomer() {
			acc.summary.ReturnCustomer = true
		}

		if record.DateRecorded != nil {
			date := *record.DateRecorded
			if acc.firstDate == nil || date.Before(*acc.firstDate) {
				acc.firstDate = &date
			}
			if acc.lastDate == nil || date.After(*acc.lastDate) {
				acc.lastDate = &date
				acc.latestJob = record
			}
			if !date.Before(yearStart) {
				acc.summary.YearToDateSales += record.TotalAmount
			}

			month := date.Format("2006-01")
			bucket, ok := acc.monthlyAcc[month]
			if !ok {
				bucket = &dto.MonthlyBucket{Month: month}
				acc.monthlyAcc[month] = bucket
			}
			bucket.Jobs++
			bucket.Sales += record.TotalAmount
			bucket.Parts += record.PartsCost
			bucket.Labor = bucket.Sales - bucket.Parts
		}
	}

	summaries := make([]dto.ClientSummary, 0, len(groups))
	for _, acc := range groups {
		summary := acc.summary
		summary.TotalLabor = summary.TotalSales - summary.TotalParts
		if summary.TotalJobs > 0 {
			summary.AvgSalePerJob = summary.TotalSales / float64(summary.TotalJobs)
		}
		summary.FirstJobDate = importer.FormatDate(acc.firstDate)
		summary.LastJobDate = importer.FormatDate(acc.lastDate)
		if acc.latestJob != nil {
			if acc.latestJob.City != nil {
				summary.City = *acc.latestJob.City
			}
			if acc.latestJob.State != nil {
				summary.State = *acc.latestJob.State
			}
		}

		summary.MonthlyData = make([]dto.MonthlyBucket, 0, len(acc.monthlyAcc))
		for _, bucket := range acc.monthlyAcc {
			summary.MonthlyData = append(summary.MonthlyData, *bucket)
		}
		sort.Slice(summary.MonthlyData, func(i, j int) bool {
			return summary.MonthlyData[i].Month < summary.MonthlyData[j].Month
		})

		summaries = append(summaries, summary)
	}
	return summaries
}

// SortClients orders summaries in place by the requested key and direction.
// Ties and unknown keys fall back to total sales.
func SortClients(summaries []dto.ClientSummary, key dto.ClientSortKey, descending bool) {
	less := func(a, b dto.ClientSummary) bool {
		switch key {
		case dto.ClientSortTotalJobs:
			return a.TotalJobs < b.TotalJobs
		case dto.ClientSortAvgSalePerJob:
			return a.AvgSalePerJob < b.AvgSalePerJob
		case dto.ClientSortLastJobDate:
			return a.LastJobDate < b.LastJobDate
		default:
			return a.TotalSales < b.TotalSales
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if descending {
			return less(summaries[j], summaries[i])
		}
		return less(summaries[i], summaries[j])
	})
}
