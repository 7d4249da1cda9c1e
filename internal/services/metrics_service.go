package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/cache"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/metrics"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/pkg/logger"
)

const metricsCacheTTL = 5 * time.Minute

// PortfolioSummary aggregates repayment metrics across the open loan book
type PortfolioSummary struct {
	TotalLoans       int     `json:"total_loans"`
	OpenLoans        int     `json:"open_loans"`
	TotalOutstanding float64 `json:"total_outstanding"`
	TotalDueToday    float64 `json:"total_due_today"`
	TotalPenalty     float64 `json:"total_penalty"`
	FullyPaid        int     `json:"fully_paid"`
	Overdue          int     `json:"overdue"`
	UnderRepayment   int     `json:"under_repayment"`
}

// MetricsService computes repayment metrics for loans, memoizing results
// in the cache so dashboard polling does not recompute the ledger on
// every request.
type MetricsService struct {
	loanRepo     repository.LoanRepository
	scheduleRepo repository.ScheduleItemRepository
	cache        cache.Cache
}

func NewMetricsService(loanRepo repository.LoanRepository, scheduleRepo repository.ScheduleItemRepository, c cache.Cache) *MetricsService {
	return &MetricsService{
		loanRepo:     loanRepo,
		scheduleRepo: scheduleRepo,
		cache:        c,
	}
}

// GetLoanMetrics returns the repayment metrics for a single loan
func (s *MetricsService) GetLoanMetrics(ctx context.Context, loanID uint) (*metrics.RepaymentMetrics, error) {
	key := loanMetricsKey(loanID)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var m metrics.RepaymentMetrics
		if err := json.Unmarshal([]byte(cached), &m); err == nil {
			return &m, nil
		}
	}

	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	ledger, err := s.scheduleRepo.GetLoanLedger(ctx, loanID)
	if err != nil {
		return nil, err
	}

	m := s.ComputeForLoan(loan, ledger, time.Now())

	if encoded, err := json.Marshal(m); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded), metricsCacheTTL); err != nil {
			logger.Warn(fmt.Sprintf("[Metrics] Failed to cache metrics for loan %d: %v", loanID, err))
		}
	}

	return &m, nil
}

// ComputeForLoan derives metrics from an already-loaded loan and ledger.
// A loan with no schedule rows yet has no authoritative ledger, so the
// engine falls back to the principal.
func (s *MetricsService) ComputeForLoan(loan *models.Loan, ledger *repository.LoanLedger, now time.Time) metrics.RepaymentMetrics {
	terms := metrics.LoanTerms{
		PrincipalAmount:  loan.PrincipalAmount,
		TermCount:        loan.TermCount,
		TermUnit:         metrics.TermUnit(loan.TermUnit),
		StartDate:        loan.StartDate,
		EndDate:          loan.EndDate,
		PenaltyFeePerDay: loan.PenaltyFeePerDayAmount,
	}

	var snapshot metrics.LedgerSnapshot
	if ledger != nil && ledger.TotalDue > 0 {
		snapshot = metrics.LedgerSnapshot{
			TotalPaid:        ledger.TotalPaid,
			TotalOutstanding: ledger.TotalOutstanding,
		}
	}

	return metrics.Compute(terms, snapshot, now)
}

// GetPortfolioSummary aggregates metrics across all open loans
func (s *MetricsService) GetPortfolioSummary(ctx context.Context) (*PortfolioSummary, error) {
	key := "metrics:summary"
	if cached, ok := s.cache.Get(ctx, key); ok {
		var summary PortfolioSummary
		if err := json.Unmarshal([]byte(cached), &summary); err == nil {
			return &summary, nil
		}
	}

	stats, err := s.loanRepo.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	query := &repository.LoanQuery{
		ListQuery: repository.NewListQuery(),
		IsAdmin:   true,
	}
	query.PerPage = 0 // no pagination, walk the whole open book
	query.Filters["status_in"] = models.LoanStatusActive + "," + models.LoanStatusDefaulted

	loans, _, err := s.loanRepo.List(ctx, query)
	if err != nil {
		return nil, err
	}

	summary := &PortfolioSummary{
		TotalLoans: int(stats.Total),
		OpenLoans:  len(loans),
	}

	now := time.Now()
	for i := range loans {
		loan := &loans[i]
		ledger, err := s.scheduleRepo.GetLoanLedger(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		m := s.ComputeForLoan(loan, ledger, now)

		summary.TotalOutstanding += m.TotalLeftToPay
		summary.TotalDueToday += m.DueToday
		summary.TotalPenalty += m.PenaltyFee

		switch m.Status {
		case metrics.StatusFullyPaid:
			summary.FullyPaid++
		case metrics.StatusOverdue:
			summary.Overdue++
		default:
			summary.UnderRepayment++
		}
	}

	if encoded, err := json.Marshal(summary); err == nil {
		if err := s.cache.Set(ctx, key, string(encoded), metricsCacheTTL); err != nil {
			logger.Warn(fmt.Sprintf("[Metrics] Failed to cache portfolio summary: %v", err))
		}
	}

	return summary, nil
}

// InvalidateLoan drops memoized metrics after a write against the loan
func (s *MetricsService) InvalidateLoan(ctx context.Context, loanID uint) {
	if err := s.cache.Delete(ctx, loanMetricsKey(loanID), "metrics:summary"); err != nil {
		logger.Warn(fmt.Sprintf("[Metrics] Failed to invalidate cache for loan %d: %v", loanID, err))
	}
}

func loanMetricsKey(loanID uint) string {
	return fmt.Sprintf("metrics:loan:%d", loanID)
}
