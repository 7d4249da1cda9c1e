package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/cache"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/metrics"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
)

// memoryCache is a map-backed Cache for asserting memoization behavior
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

var _ cache.Cache = (*memoryCache)(nil)

func openMetricsLoan(principal float64) *models.Loan {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 2, 0)
	return &models.Loan{
		ID:              5,
		LoanNumber:      "LN00000005",
		PrincipalAmount: principal,
		TermCount:       2,
		TermUnit:        models.TermUnitMonth,
		StartDate:       &start,
		EndDate:         &end,
		Status:          models.LoanStatusActive,
	}
}

func TestMetricsService_ComputeForLoan_NoScheduleFallsBackToPrincipal(t *testing.T) {
	svc := NewMetricsService(&mockLoanRepository{}, &mockScheduleItemRepository{}, cache.NewNoop())

	loan := openMetricsLoan(1000)
	now := loan.StartDate.AddDate(0, 0, 10)

	// Ledger with no rows yet: TotalDue is zero, so the aggregates are
	// not authoritative and the engine works from the principal
	m := svc.ComputeForLoan(loan, &repository.LoanLedger{}, now)

	assert.InDelta(t, 1000, m.TotalLeftToPay, 0.001)
	assert.Equal(t, metrics.StatusUnderRepayment, m.Status)
}

func TestMetricsService_ComputeForLoan_SettledLedgerWinsOverOverdue(t *testing.T) {
	svc := NewMetricsService(&mockLoanRepository{}, &mockScheduleItemRepository{}, cache.NewNoop())

	loan := openMetricsLoan(1000)
	now := loan.EndDate.AddDate(0, 0, 5) // past the deadline

	m := svc.ComputeForLoan(loan, &repository.LoanLedger{
		TotalDue:         1000,
		TotalPaid:        1000,
		TotalOutstanding: 0,
	}, now)

	assert.Equal(t, metrics.StatusFullyPaid, m.Status)
	assert.Zero(t, m.TotalLeftToPay)
	assert.Zero(t, m.PenaltyFee)
}

func TestMetricsService_GetLoanMetrics_Memoizes(t *testing.T) {
	loanRepo := &mockLoanRepository{}
	scheduleRepo := &mockScheduleItemRepository{}

	var lookups int
	loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		lookups++
		return openMetricsLoan(1000), nil
	}
	scheduleRepo.mockGetLoanLedger = func(ctx context.Context, loanID uint) (*repository.LoanLedger, error) {
		return &repository.LoanLedger{TotalDue: 1000, TotalPaid: 400, TotalOutstanding: 600}, nil
	}

	svc := NewMetricsService(loanRepo, scheduleRepo, newMemoryCache())

	first, err := svc.GetLoanMetrics(context.Background(), 5)
	require.NoError(t, err)
	second, err := svc.GetLoanMetrics(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, lookups, "second call should be served from cache")
	assert.Equal(t, first.TotalLeftToPay, second.TotalLeftToPay)

	// A write against the loan drops the memoized entry
	svc.InvalidateLoan(context.Background(), 5)
	_, err = svc.GetLoanMetrics(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, lookups)
}

func TestMetricsService_GetPortfolioSummary(t *testing.T) {
	loanRepo := &mockLoanRepository{}
	scheduleRepo := &mockScheduleItemRepository{}

	settled := openMetricsLoan(1000)
	settled.ID = 1
	overdue := openMetricsLoan(2000)
	overdue.ID = 2
	end := time.Now().AddDate(0, 0, -10)
	overdue.EndDate = &end

	loanRepo.mockGetStats = func(ctx context.Context) (*repository.LoanStats, error) {
		return &repository.LoanStats{Total: 7}, nil
	}
	loanRepo.mockList = func(ctx context.Context, query *repository.LoanQuery) ([]models.Loan, int64, error) {
		assert.True(t, query.IsAdmin)
		assert.Zero(t, query.PerPage)
		return []models.Loan{*settled, *overdue}, 2, nil
	}
	scheduleRepo.mockGetLoanLedger = func(ctx context.Context, loanID uint) (*repository.LoanLedger, error) {
		if loanID == 1 {
			return &repository.LoanLedger{TotalDue: 1000, TotalPaid: 1000, TotalOutstanding: 0}, nil
		}
		return &repository.LoanLedger{TotalDue: 2000, TotalPaid: 500, TotalOutstanding: 1500}, nil
	}

	svc := NewMetricsService(loanRepo, scheduleRepo, cache.NewNoop())

	summary, err := svc.GetPortfolioSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, summary.TotalLoans)
	assert.Equal(t, 2, summary.OpenLoans)
	assert.Equal(t, 1, summary.FullyPaid)
	assert.Equal(t, 1, summary.Overdue)
	assert.Zero(t, summary.UnderRepayment)
	assert.InDelta(t, 1500, summary.TotalOutstanding, 0.001)
}
