// Package metrics implements the loan repayment metrics engine: pure
// calculations that derive outstanding balance, the amount due today,
// accrued penalty and lifecycle status from a loan's terms and its
// payment history. Every function is side-effect free and total on its
// input domain; malformed input degrades to zeroed output instead of
// failing the caller.
package metrics

import (
	"math"
	"strconv"
	"time"
)

// TermUnit is the unit a loan's repayment term is expressed in.
type TermUnit string

const (
	TermUnitDay   TermUnit = "DAY"
	TermUnitWeek  TermUnit = "WEEK"
	TermUnitMonth TermUnit = "MONTH"
)

// Status is the computed lifecycle status of a loan.
type Status string

const (
	StatusFullyPaid      Status = "FULLY_PAID"
	StatusOverdue        Status = "OVERDUE"
	StatusUnderRepayment Status = "UNDER_REPAYMENT"
)

// LoanTerms are the contractual terms of a loan as supplied by the caller.
// Monetary fields are loosely typed because the upstream API serializes
// decimal columns as strings; Compute coerces them once at the boundary.
type LoanTerms struct {
	PrincipalAmount  any
	TermCount        int
	TermUnit         TermUnit
	StartDate        *time.Time
	EndDate          *time.Time
	PenaltyFeePerDay any
}

// LedgerSnapshot is the payment history view for a single loan. TotalPaid
// and TotalOutstanding are authoritative pre-aggregated values when the
// data source provides them; nil means absent, in which case the engine
// falls back to PaidAmount (a single schedule line item's paid figure).
type LedgerSnapshot struct {
	PaidAmount       any
	TotalPaid        any
	TotalOutstanding any
}

// RepaymentMetrics is the engine's output. All monetary fields are
// non-negative and never NaN; DaysRemaining is negative once the loan is
// past its contractual deadline.
type RepaymentMetrics struct {
	TotalLeftToPay float64 `json:"totalLeftToPay"`
	DueToday       float64 `json:"dueToday"`
	PenaltyFee     float64 `json:"penaltyFee"`
	DaysRemaining  int     `json:"daysRemaining"`
	Status         Status  `json:"status"`
}

// Coerce converts an arbitrary upstream value into a finite float64,
// defaulting to 0. Finite numbers pass through unchanged, strings are
// parsed as decimals, everything else (nil, booleans, structs, NaN, Inf)
// collapses to 0. Coerce never panics.
func Coerce(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case *float64:
		if n == nil {
			return 0
		}
		return finite(*n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return finite(parsed)
	default:
		return 0
	}
}

// TermDays normalizes a (termCount, termUnit) pair into a total number of
// elapsed days. Months are flattened to 30 days, a documented simplification
// carried from the source system rather than calendar arithmetic. An
// unrecognized unit treats the count as days. The raw product may be zero;
// Compute substitutes 1 before dividing.
func TermDays(count int, unit TermUnit) int {
	switch unit {
	case TermUnitDay:
		return count
	case TermUnitWeek:
		return count * 7
	case TermUnitMonth:
		return count * 30
	default:
		return count
	}
}

// DailyDue computes the flat daily repayment obligation, rounded to the
// nearest whole currency unit. A zero-length term returns the full
// principal: a term of zero days is an upstream data anomaly, and the
// whole amount falling due at once is the safe reading of it. This is the
// principal-amortization component only; interest is out of scope.
func DailyDue(principal float64, totalDays int) float64 {
	if totalDays == 0 {
		return finite(principal)
	}
	return math.Round(finite(principal) / float64(totalDays))
}

// Outstanding resolves the remaining balance on a loan. An authoritative
// pre-aggregated outstanding figure wins outright; otherwise the aggregate
// paid total is preferred over the single line-item fallback, and the
// result is clamped to zero so an overpayment never yields a negative
// balance.
func Outstanding(principal float64, authoritativeOutstanding, authoritativePaid any, fallbackPaid float64) float64 {
	if authoritativeOutstanding != nil {
		return math.Max(0, Coerce(authoritativeOutstanding))
	}

	paid := fallbackPaid
	if authoritativePaid != nil {
		paid = Coerce(authoritativePaid)
	}

	return math.Max(0, finite(principal)-finite(paid))
}

// Penalty computes the accrued late-payment fee. It accrues only when the
// loan is past its deadline AND still carries a balance; a settled loan
// accrues nothing no matter how late the clock reads. Accrual is simple
// daily: overdue days times the per-day fee, uncapped.
func Penalty(daysRemaining int, outstanding, perDay float64) float64 {
	if daysRemaining >= 0 || outstanding <= 0 {
		return 0
	}
	overdueDays := float64(-daysRemaining)
	return math.Max(0, overdueDays*finite(perDay))
}

// Classify derives the lifecycle status. Rule order is the tie-break
// policy: a zero balance always wins, so a loan paid off early is never
// reported overdue.
func Classify(outstanding float64, daysRemaining int) Status {
	switch {
	case outstanding == 0:
		return StatusFullyPaid
	case daysRemaining < 0:
		return StatusOverdue
	default:
		return StatusUnderRepayment
	}
}

// DaysRemaining returns the number of whole days until the deadline,
// rounding partial days up. Deadlines already behind now yield a negative
// count. now is injected rather than read from the clock so results are
// reproducible.
func DaysRemaining(deadline, now time.Time) int {
	diff := deadline.Sub(now)
	return int(math.Ceil(diff.Hours() / 24))
}

// Compute derives the full RepaymentMetrics snapshot for a loan. It never
// returns an error and never produces NaN or negative fields; missing
// dates fall back endDate -> startDate -> now.
func Compute(terms LoanTerms, ledger LedgerSnapshot, now time.Time) RepaymentMetrics {
	principal := Coerce(terms.PrincipalAmount)
	penaltyPerDay := Coerce(terms.PenaltyFeePerDay)
	fallbackPaid := Coerce(ledger.PaidAmount)

	totalDays := TermDays(terms.TermCount, terms.TermUnit)
	if totalDays < 1 {
		totalDays = 1
	}
	daily := DailyDue(principal, totalDays)

	outstanding := Outstanding(principal, ledger.TotalOutstanding, ledger.TotalPaid, fallbackPaid)

	deadline := now
	if terms.EndDate != nil {
		deadline = *terms.EndDate
	} else if terms.StartDate != nil {
		deadline = *terms.StartDate
	}
	remaining := DaysRemaining(deadline, now)

	// Once overdue the entire balance becomes immediately payable; the
	// daily installment only applies while the loan is current.
	var dueToday float64
	switch {
	case outstanding == 0:
		dueToday = 0
	case remaining >= 0:
		dueToday = math.Min(daily, outstanding)
	default:
		dueToday = outstanding
	}

	return RepaymentMetrics{
		TotalLeftToPay: clamp(outstanding),
		DueToday:       clamp(dueToday),
		PenaltyFee:     clamp(Penalty(remaining, outstanding, penaltyPerDay)),
		DaysRemaining:  remaining,
		Status:         Classify(outstanding, remaining),
	}
}

// finite replaces NaN and infinities with 0.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// clamp sanitizes a monetary output field: finite and non-negative.
func clamp(f float64) float64 {
	return math.Max(0, finite(f))
}
