package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestCoerce(t *testing.T) {
	assert.Equal(t, 42.5, Coerce(42.5))
	assert.Equal(t, 42.5, Coerce("42.5"))
	assert.Equal(t, 30000.0, Coerce("30000"))
	assert.Equal(t, 7.0, Coerce(7))
	assert.Equal(t, 7.0, Coerce(int64(7)))
	assert.Equal(t, 0.0, Coerce(nil))
	assert.Equal(t, 0.0, Coerce("not a number"))
	assert.Equal(t, 0.0, Coerce(""))
	assert.Equal(t, 0.0, Coerce(math.NaN()))
	assert.Equal(t, 0.0, Coerce(math.Inf(1)))
	assert.Equal(t, 0.0, Coerce(true))
	assert.Equal(t, 0.0, Coerce((*float64)(nil)))

	v := 12.25
	assert.Equal(t, 12.25, Coerce(&v))
}

func TestTermDays(t *testing.T) {
	assert.Equal(t, 30, TermDays(30, TermUnitDay))
	assert.Equal(t, 28, TermDays(4, TermUnitWeek))
	assert.Equal(t, 90, TermDays(3, TermUnitMonth))
	// Unrecognized unit falls back to days
	assert.Equal(t, 12, TermDays(12, TermUnit("FORTNIGHT")))
	assert.Equal(t, 0, TermDays(0, TermUnitDay))
}

func TestDailyDue(t *testing.T) {
	assert.Equal(t, 1000.0, DailyDue(30000, 30))
	// Rounds to the nearest whole currency unit
	assert.Equal(t, 333.0, DailyDue(1000, 3))
	assert.Equal(t, 667.0, DailyDue(2000, 3))
	// Zero-length term returns the full principal
	assert.Equal(t, 30000.0, DailyDue(30000, 0))
	assert.Equal(t, 0.0, DailyDue(math.NaN(), 0))
}

func TestOutstanding(t *testing.T) {
	// Authoritative outstanding wins over everything
	assert.Equal(t, 1234.0, Outstanding(30000, 1234.0, 99999.0, 50))
	// Serialized-as-string authoritative value
	assert.Equal(t, 1234.0, Outstanding(30000, "1234", nil, 0))
	// Aggregate paid preferred over line-item fallback
	assert.Equal(t, 20000.0, Outstanding(30000, nil, 10000.0, 29999))
	// Line-item fallback when no aggregates present
	assert.Equal(t, 29500.0, Outstanding(30000, nil, nil, 500))
	// Never negative
	assert.Equal(t, 0.0, Outstanding(30000, nil, 40000.0, 0))
	assert.Equal(t, 0.0, Outstanding(30000, -50.0, nil, 0))
}

func TestPenalty(t *testing.T) {
	assert.Equal(t, 250.0, Penalty(-5, 20000, 50))
	// No penalty while still within term
	assert.Equal(t, 0.0, Penalty(0, 20000, 50))
	assert.Equal(t, 0.0, Penalty(3, 20000, 50))
	// No penalty on a settled loan, however late
	assert.Equal(t, 0.0, Penalty(-100, 0, 50))
	// Negative per-day rate never produces a negative fee
	assert.Equal(t, 0.0, Penalty(-5, 20000, -50))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, StatusUnderRepayment, Classify(100, 5))
	assert.Equal(t, StatusUnderRepayment, Classify(100, 0))
	assert.Equal(t, StatusOverdue, Classify(100, -1))
	// Zero balance wins over the date: paid off early is never overdue
	assert.Equal(t, StatusFullyPaid, Classify(0, -5))
	assert.Equal(t, StatusFullyPaid, Classify(0, 5))
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 5, DaysRemaining(now.AddDate(0, 0, 5), now))
	assert.Equal(t, -5, DaysRemaining(now.AddDate(0, 0, -5), now))
	assert.Equal(t, 0, DaysRemaining(now, now))
	// Partial days round up
	assert.Equal(t, 1, DaysRemaining(now.Add(6*time.Hour), now))
}

func TestCompute_FreshLoan(t *testing.T) {
	// Scenario: principal=30000, 30-day term, nothing paid, today=startDate
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		PrincipalAmount:  30000.0,
		TermCount:        30,
		TermUnit:         TermUnitDay,
		StartDate:        datePtr(now),
		EndDate:          datePtr(now.AddDate(0, 0, 30)),
		PenaltyFeePerDay: 50.0,
	}

	m := Compute(terms, LedgerSnapshot{TotalPaid: 0.0}, now)

	assert.Equal(t, 30000.0, m.TotalLeftToPay)
	assert.Equal(t, 1000.0, m.DueToday)
	assert.Equal(t, 0.0, m.PenaltyFee)
	assert.Equal(t, 30, m.DaysRemaining)
	assert.Equal(t, StatusUnderRepayment, m.Status)
}

func TestCompute_FullyPaidBeatsOverdue(t *testing.T) {
	// Fully repaid loan stays FULLY_PAID even with the deadline in the past
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		PrincipalAmount:  30000.0,
		TermCount:        30,
		TermUnit:         TermUnitDay,
		EndDate:          datePtr(now.AddDate(0, 0, -10)),
		PenaltyFeePerDay: 50.0,
	}

	m := Compute(terms, LedgerSnapshot{TotalPaid: 30000.0}, now)

	assert.Equal(t, 0.0, m.TotalLeftToPay)
	assert.Equal(t, 0.0, m.DueToday)
	assert.Equal(t, 0.0, m.PenaltyFee)
	assert.Equal(t, StatusFullyPaid, m.Status)
}

func TestCompute_OverdueLoan(t *testing.T) {
	// 5 days past deadline, 10000 of 30000 repaid, 50/day penalty
	now := time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		PrincipalAmount:  30000.0,
		TermCount:        30,
		TermUnit:         TermUnitDay,
		EndDate:          datePtr(now.AddDate(0, 0, -5)),
		PenaltyFeePerDay: 50.0,
	}

	m := Compute(terms, LedgerSnapshot{TotalPaid: 10000.0}, now)

	assert.Equal(t, -5, m.DaysRemaining)
	assert.Equal(t, 250.0, m.PenaltyFee)
	// Entire remaining balance becomes payable once overdue
	assert.Equal(t, 20000.0, m.TotalLeftToPay)
	assert.Equal(t, 20000.0, m.DueToday)
	assert.Equal(t, StatusOverdue, m.Status)
}

func TestCompute_ZeroTermCount(t *testing.T) {
	// termCount=0 normalizes to 1 day; full principal due as one installment
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		PrincipalAmount: 5000.0,
		TermCount:       0,
		TermUnit:        TermUnitDay,
		EndDate:         datePtr(now.AddDate(0, 0, 1)),
	}

	m := Compute(terms, LedgerSnapshot{}, now)

	assert.Equal(t, 5000.0, m.DueToday)
	assert.Equal(t, 5000.0, m.TotalLeftToPay)
}

func TestCompute_StringAmounts(t *testing.T) {
	// Upstream serializes decimal columns as strings
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		PrincipalAmount:  "30000",
		TermCount:        30,
		TermUnit:         TermUnitDay,
		EndDate:          datePtr(now.AddDate(0, 0, 30)),
		PenaltyFeePerDay: "50",
	}

	m := Compute(terms, LedgerSnapshot{PaidAmount: "500"}, now)

	assert.Equal(t, 29500.0, m.TotalLeftToPay)
	assert.Equal(t, 1000.0, m.DueToday)
}

func TestCompute_AuthoritativeOutstandingWins(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		PrincipalAmount: 30000.0,
		TermCount:       30,
		TermUnit:        TermUnitDay,
		EndDate:         datePtr(now.AddDate(0, 0, 10)),
	}
	ledger := LedgerSnapshot{
		TotalOutstanding: 12345.0,
		TotalPaid:        1.0, // would imply 29999 outstanding; must be ignored
		PaidAmount:       2.0,
	}

	m := Compute(terms, ledger, now)
	assert.Equal(t, 12345.0, m.TotalLeftToPay)
}

func TestCompute_MissingDatesFallback(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// No end date: deadline falls back to start date
	start := now.AddDate(0, 0, -3)
	m := Compute(LoanTerms{
		PrincipalAmount: 1000.0,
		TermCount:       10,
		TermUnit:        TermUnitDay,
		StartDate:       &start,
	}, LedgerSnapshot{}, now)
	assert.Equal(t, -3, m.DaysRemaining)
	assert.Equal(t, StatusOverdue, m.Status)

	// No dates at all: deadline falls back to now, loan is current
	m = Compute(LoanTerms{
		PrincipalAmount: 1000.0,
		TermCount:       10,
		TermUnit:        TermUnitDay,
	}, LedgerSnapshot{}, now)
	assert.Equal(t, 0, m.DaysRemaining)
	assert.Equal(t, StatusUnderRepayment, m.Status)
}

func TestCompute_NeverNaNOrNegative(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -30)

	cases := []struct {
		name   string
		terms  LoanTerms
		ledger LedgerSnapshot
	}{
		{"all zero values", LoanTerms{}, LedgerSnapshot{}},
		{"negative principal", LoanTerms{PrincipalAmount: -5000.0, TermCount: 10, TermUnit: TermUnitDay}, LedgerSnapshot{}},
		{"garbage strings", LoanTerms{PrincipalAmount: "??", TermCount: 5, TermUnit: TermUnitDay, PenaltyFeePerDay: "??"}, LedgerSnapshot{PaidAmount: "??"}},
		{"NaN inputs overdue", LoanTerms{PrincipalAmount: math.NaN(), TermCount: 0, EndDate: &past, PenaltyFeePerDay: math.NaN()}, LedgerSnapshot{TotalPaid: math.NaN()}},
		{"overpaid", LoanTerms{PrincipalAmount: 1000.0, TermCount: 10, TermUnit: TermUnitDay, EndDate: &past}, LedgerSnapshot{TotalPaid: 5000.0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Compute(tc.terms, tc.ledger, now)
			assert.False(t, math.IsNaN(m.TotalLeftToPay))
			assert.False(t, math.IsNaN(m.DueToday))
			assert.False(t, math.IsNaN(m.PenaltyFee))
			assert.GreaterOrEqual(t, m.TotalLeftToPay, 0.0)
			assert.GreaterOrEqual(t, m.DueToday, 0.0)
			assert.GreaterOrEqual(t, m.PenaltyFee, 0.0)
			assert.LessOrEqual(t, m.DueToday, m.TotalLeftToPay)
		})
	}
}

func TestCompute_Idempotent(t *testing.T) {
	now := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	terms := LoanTerms{
		PrincipalAmount:  "25000",
		TermCount:        4,
		TermUnit:         TermUnitWeek,
		StartDate:        datePtr(now.AddDate(0, 0, -7)),
		EndDate:          datePtr(now.AddDate(0, 0, 21)),
		PenaltyFeePerDay: 25.0,
	}
	ledger := LedgerSnapshot{TotalPaid: 6250.0}

	first := Compute(terms, ledger, now)
	second := Compute(terms, ledger, now)
	assert.Equal(t, first, second)
}

func TestCompute_PayingMoreNeverIncreasesDebt(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		PrincipalAmount:  30000.0,
		TermCount:        30,
		TermUnit:         TermUnitDay,
		EndDate:          datePtr(now.AddDate(0, 0, 15)),
		PenaltyFeePerDay: 50.0,
	}

	prev := Compute(terms, LedgerSnapshot{TotalPaid: 0.0}, now)
	for paid := 1000.0; paid <= 31000; paid += 1000 {
		cur := Compute(terms, LedgerSnapshot{TotalPaid: paid}, now)
		assert.LessOrEqual(t, cur.TotalLeftToPay, prev.TotalLeftToPay)
		assert.LessOrEqual(t, cur.DueToday, prev.DueToday)
		prev = cur
	}
	assert.Equal(t, StatusFullyPaid, prev.Status)
}

func TestCompute_PenaltyImpliesOverdueAndOwing(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for days := -10; days <= 10; days++ {
		for _, paid := range []float64{0, 500, 1000} {
			deadline := now.AddDate(0, 0, days)
			m := Compute(LoanTerms{
				PrincipalAmount:  1000.0,
				TermCount:        10,
				TermUnit:         TermUnitDay,
				EndDate:          &deadline,
				PenaltyFeePerDay: 10.0,
			}, LedgerSnapshot{TotalPaid: paid}, now)

			if m.PenaltyFee > 0 {
				assert.Negative(t, m.DaysRemaining)
				assert.Positive(t, m.TotalLeftToPay)
			}
			if m.TotalLeftToPay == 0 {
				assert.Equal(t, StatusFullyPaid, m.Status)
			}
		}
	}
}

func TestCompute_MonthTermUsesFlatThirtyDays(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	terms := LoanTerms{
		PrincipalAmount: 90000.0,
		TermCount:       3,
		TermUnit:        TermUnitMonth,
		EndDate:         datePtr(now.AddDate(0, 3, 0)),
	}

	m := Compute(terms, LedgerSnapshot{}, now)
	// 90000 / (3 * 30) = 1000 per day
	assert.Equal(t, 1000.0, m.DueToday)
}
