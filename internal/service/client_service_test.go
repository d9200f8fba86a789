package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldserve/payout-api/internal/dto"
	"github.com/fieldserve/payout-api/internal/models"
)

func TestRollupClients(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []models.JobRecord{
		{
			CustomerName: "Acme", TotalAmount: 200, PartsCost: 50,
			Paycode: intPtr(2), DateRecorded: datePtr(2024, 1, 10),
			City: strPtr("Olympia"), State: strPtr("WA"),
		},
		{
			CustomerName: "Acme", TotalAmount: 100, PartsCost: 20,
			DateRecorded: datePtr(2024, 3, 5),
			City:         strPtr("Seattle"), State: strPtr("WA"),
		},
		{
			CustomerName: "Acme", TotalAmount: 50, PartsCost: 0,
			DateRecorded: datePtr(2023, 12, 20),
		},
		{
			CustomerName: "", TotalAmount: 80, PartsCost: 10,
			DateRecorded: datePtr(2024, 2, 1),
		},
	}

	summaries := RollupClients(records, now)
	require.Len(t, summaries, 2)

	byName := make(map[string]dto.ClientSummary, len(summaries))
	for _, summary := range summaries {
		byName[summary.CustomerName] = summary
	}

	acme, ok := byName["Acme"]
	require.True(t, ok)
	assert.Equal(t, 3, acme.TotalJobs)
	assert.InDelta(t, 350, acme.TotalSales, 1e-9)
	assert.InDelta(t, 70, acme.TotalParts, 1e-9)
	assert.InDelta(t, 280, acme.TotalLabor, 1e-9)
	assert.InDelta(t, 350.0/3, acme.AvgSalePerJob, 1e-9)
	assert.True(t, acme.ReturnCustomer)
	assert.Equal(t, "2023-12-20", acme.FirstJobDate)
	assert.Equal(t, "2024-03-05", acme.LastJobDate)

	// Location comes from the most recent job.
	assert.Equal(t, "Seattle", acme.City)
	assert.Equal(t, "WA", acme.State)

	// Only 2024 jobs count toward year-to-date.
	assert.InDelta(t, 300, acme.YearToDateSales, 1e-9)

	require.Len(t, acme.MonthlyData, 3)
	assert.Equal(t, "2023-12", acme.MonthlyData[0].Month)
	assert.Equal(t, "2024-01", acme.MonthlyData[1].Month)
	assert.InDelta(t, 200, acme.MonthlyData[1].Sales, 1e-9)
	assert.InDelta(t, 150, acme.MonthlyData[1].Labor, 1e-9)

	unknown, ok := byName[UnknownCustomerBucket]
	require.True(t, ok)
	assert.Equal(t, 1, unknown.TotalJobs)
	assert.False(t, unknown.ReturnCustomer)
}

func TestSortClients(t *testing.T) {
	summaries := []dto.ClientSummary{
		{CustomerName: "A", TotalSales: 100, TotalJobs: 5, LastJobDate: "2024-01-01"},
		{CustomerName: "B", TotalSales: 300, TotalJobs: 1, LastJobDate: "2024-03-01"},
		{CustomerName: "C", TotalSales: 200, TotalJobs: 3, LastJobDate: "2024-02-01"},
	}

	SortClients(summaries, dto.ClientSortTotalSales, true)
	assert.Equal(t, "B", summaries[0].CustomerName)

	SortClients(summaries, dto.ClientSortTotalJobs, false)
	assert.Equal(t, "B", summaries[0].CustomerName)
	assert.Equal(t, "A", summaries[2].CustomerName)

	SortClients(summaries, dto.ClientSortLastJobDate, true)
	assert.Equal(t, "B", summaries[0].CustomerName)
}

func TestClientServiceTopClientsLimitsAndCaches(t *testing.T) {
	records := make([]models.JobRecord, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, models.JobRecord{
			CustomerName: string(rune('A' + i)),
			TotalAmount:  float64(i + 1),
			DateRecorded: datePtr(2024, 1, i%28+1),
		})
	}
	jobs := &fakeJobProvider{records: records}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)

	svc := NewClientService(ClientServiceParams{
		Jobs:   jobs,
		Cache:  cacheSvc,
		Logger: zap.NewNop(),
		Config: ClientServiceConfig{DefaultLimit: 25},
	})

	summaries, hit, err := svc.TopClients(context.Background(), models.JobFilter{}, dto.ClientQuery{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, summaries, 25)
	// Default ordering is total sales descending.
	assert.InDelta(t, 30, summaries[0].TotalSales, 1e-9)

	_, hit, err = svc.TopClients(context.Background(), models.JobFilter{}, dto.ClientQuery{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, jobs.calls)
}

func TestTopClientsServesEmptyRollupOnFetchFailure(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)

	svc := NewClientService(ClientServiceParams{
		Jobs:   &fakeJobProvider{err: errors.New("backend down")},
		Cache:  cacheSvc,
		Logger: zap.NewNop(),
	})

	summaries, hit, err := svc.TopClients(context.Background(), models.JobFilter{}, dto.ClientQuery{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)

	// The degraded payload is never cached.
	assert.Zero(t, cacheRepo.sets)
}
