package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/models"
	appErrors "github.com/fieldserve/payout-api/pkg/errors"
)

type stubCacheRepo struct {
	values map[string][]byte
	sets   int
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.values == nil {
		return appErrors.ErrCacheMiss
	}
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.values == nil {
		s.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	s.sets++
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(context.Context, string) error {
	s.values = nil
	return nil
}

type fakeJobProvider struct {
	records []models.JobRecord
	err     error
	calls   int
}

func (f *fakeJobProvider) FetchAll(context.Context, models.JobFilter) ([]models.JobRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeTechnicianCounter struct {
	total int
	err   error
}

func (f *fakeTechnicianCounter) Count(context.Context) (int, error) {
	return f.total, f.err
}

func boolPtr(v bool) *bool       { return &v }
func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestOverviewPayoutRates(t *testing.T) {
	oem := models.JobRecord{TotalAmount: 200, PartsCost: 50, IsOEMClient: boolPtr(true)}
	assert.InDelta(t, 59.75, OverviewPayout(oem), 1e-9)

	standard := models.JobRecord{TotalAmount: 200, PartsCost: 50, IsOEMClient: boolPtr(false)}
	assert.InDelta(t, 125.0, OverviewPayout(standard), 1e-9)

	// Unknown OEM status falls back to the standard rate.
	unknown := models.JobRecord{TotalAmount: 200, PartsCost: 50}
	assert.InDelta(t, 125.0, OverviewPayout(unknown), 1e-9)
}

func TestIsServiceCall(t *testing.T) {
	cases := []struct {
		name   string
		total  float64
		parts  float64
		expect bool
	}{
		{name: "exact literal 74.95", total: 74.95, parts: 30, expect: true},
		{name: "exact literal 89.45", total: 89.45, parts: 12, expect: true},
		{name: "exact literal 75", total: 75, parts: 5, expect: true},
		{name: "exact literal 90", total: 90, parts: 50, expect: true},
		{name: "band with no parts", total: 82.50, parts: 0, expect: true},
		{name: "band boundary low", total: 70, parts: 0, expect: true},
		{name: "band boundary high", total: 100, parts: 0, expect: true},
		{name: "band with parts", total: 82.50, parts: 1, expect: false},
		{name: "below band", total: 69.99, parts: 0, expect: false},
		{name: "above band", total: 100.01, parts: 0, expect: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := models.JobRecord{TotalAmount: tc.total, PartsCost: tc.parts}
			assert.Equal(t, tc.expect, IsServiceCall(record))
		})
	}
}

func TestComputeMetrics(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	records := []models.JobRecord{
		{
			TotalAmount: 200, PartsCost: 50, PartsSold: 80,
			IsOEMClient: boolPtr(true), Paycode: intPtr(2),
			InvoiceNumber: strPtr("10001"), State: strPtr("WA"),
			DateRecorded: datePtr(2024, 3, 2),
		},
		{
			TotalAmount: 89.45, PartsCost: 10, PartsSold: 0,
			IsOEMClient: boolPtr(false), Paycode: intPtr(1),
			InvoiceNumber: strPtr("10002"), State: strPtr("WA"),
			DateRecorded: datePtr(2024, 2, 10),
		},
		{
			TotalAmount: 100, PartsCost: 0,
			DateRecorded: datePtr(2024, 3, 10),
		},
	}

	metrics := ComputeMetrics(records, now)

	assert.Equal(t, 3, metrics.TotalJobs)
	assert.InDelta(t, 389.45, metrics.TotalSales, 1e-9)
	assert.InDelta(t, 60, metrics.TotalParts, 1e-9)
	assert.InDelta(t, 329.45, metrics.TotalLabor, 1e-9)
	assert.InDelta(t, metrics.TotalSales-metrics.TotalParts, metrics.TotalLabor, 1e-9)
	assert.InDelta(t, 389.45/3, metrics.AvgSalePerJob, 1e-9)

	// 89.45 is an exact literal; 100 is parts-free in band.
	assert.Equal(t, 2, metrics.ServiceCallCount)
	assert.InDelta(t, 189.45, metrics.TotalServiceCallSales, 1e-9)

	assert.Equal(t, 2, metrics.InvoiceCount)
	assert.Equal(t, 1, metrics.ReturnCustomerCount)

	// Nil OEM flag is excluded from both buckets.
	assert.Equal(t, 1, metrics.OEMJobsCount)
	assert.Equal(t, 1, metrics.NonOEMJobsCount)
	assert.InDelta(t, 200, metrics.OEMSales, 1e-9)
	assert.InDelta(t, 89.45, metrics.NonOEMSales, 1e-9)

	assert.Equal(t, 2, metrics.JobsThisMonth)
	assert.InDelta(t, 300, metrics.SalesThisMonth, 1e-9)

	// Parts profit may go negative per job.
	assert.InDelta(t, (80-50)+(0-10)+0, metrics.TotalPartProfit, 1e-9)

	// State buckets reconcile with totals.
	var bucketSales float64
	var bucketCount int
	for _, bucket := range metrics.SalesByState {
		bucketSales += bucket.Sales
		bucketCount += bucket.Count
	}
	assert.InDelta(t, metrics.TotalSales, bucketSales, 1e-9)
	assert.Equal(t, metrics.TotalJobs, bucketCount)
	require.Len(t, metrics.SalesByState, 2)
	assert.Equal(t, "WA", metrics.SalesByState[0].State)
	assert.Equal(t, "Unknown", metrics.SalesByState[1].State)

	expectedPayout := (200-50)*0.065 + 50 + (89.45-10)*0.5 + 10 + 100*0.5
	assert.InDelta(t, expectedPayout, metrics.TotalPayout, 1e-9)
}

func TestComputeMetricsEmptySet(t *testing.T) {
	metrics := ComputeMetrics(nil, time.Now().UTC())

	assert.Zero(t, metrics.TotalJobs)
	assert.Zero(t, metrics.AvgSalePerJob)
	assert.Zero(t, metrics.PartsSalesRatio)
	assert.Zero(t, metrics.LaborSalesRatio)
	assert.Zero(t, metrics.ServiceCallPercentage)
	assert.Zero(t, metrics.ReturnCustomerPercentage)
	assert.Zero(t, metrics.AvgPartProfit)
	assert.Empty(t, metrics.SalesByState)
}

func TestDashboardServiceOverviewCaches(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)

	jobs := &fakeJobProvider{records: []models.JobRecord{
		{TotalAmount: 150, PartsCost: 40, IsOEMClient: boolPtr(false)},
	}}
	svc := NewDashboardService(DashboardServiceParams{
		Jobs:        jobs,
		Technicians: &fakeTechnicianCounter{total: 7},
		Cache:       cacheSvc,
		Logger:      zap.NewNop(),
	})

	metrics, hit, err := svc.Overview(context.Background(), models.JobFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, metrics.TotalJobs)
	assert.Equal(t, 7, metrics.TotalTechnicians)

	cached, hit, err := svc.Overview(context.Background(), models.JobFilter{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, metrics.TotalJobs, cached.TotalJobs)
	assert.Equal(t, 1, jobs.calls)
}

func TestDashboardServiceOverviewServesZeroMetricsOnFetchFailure(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)

	svc := NewDashboardService(DashboardServiceParams{
		Jobs:   &fakeJobProvider{err: errors.New("backend down")},
		Cache:  cacheSvc,
		Logger: zap.NewNop(),
	})

	metrics, hit, err := svc.Overview(context.Background(), models.JobFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	require.NotNil(t, metrics)
	assert.Zero(t, metrics.TotalJobs)
	assert.Zero(t, metrics.TotalSales)
	assert.Zero(t, metrics.TotalPayout)

	// The degraded payload is never cached.
	assert.Zero(t, cacheRepo.sets)
}

func TestDashboardServiceOverviewSurvivesCountFailure(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Jobs:        &fakeJobProvider{records: []models.JobRecord{{TotalAmount: 80}}},
		Technicians: &fakeTechnicianCounter{err: context.DeadlineExceeded},
		Logger:      zap.NewNop(),
	})

	metrics, _, err := svc.Overview(context.Background(), models.JobFilter{})
	require.NoError(t, err)
	assert.Zero(t, metrics.TotalTechnicians)
	assert.Equal(t, 1, metrics.TotalJobs)
}
