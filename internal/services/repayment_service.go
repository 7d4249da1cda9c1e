package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/jobs"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/pkg/logger"
)

// CreateRepaymentInput carries the fields needed to record a payment
type CreateRepaymentInput struct {
	LoanID         uint    `json:"loan_id" binding:"required"`
	Amount         float64 `json:"amount" binding:"required"`
	Method         string  `json:"method"`
	Reference      *string `json:"reference"`
	Notes          *string `json:"notes"`
	ScheduleItemID *uint   `json:"schedule_item_id"`
}

type RepaymentService struct {
	repo            repository.RepaymentRepository
	loanRepo        repository.LoanRepository
	scheduleRepo    repository.ScheduleItemRepository
	metricsSvc      *MetricsService
	loanSvc         *LoanService
	notificationSvc *NotificationService
	auditSvc        *AuditService
	worker          *jobs.Worker
}

func NewRepaymentService(
	repo repository.RepaymentRepository,
	loanRepo repository.LoanRepository,
	scheduleRepo repository.ScheduleItemRepository,
	metricsSvc *MetricsService,
	loanSvc *LoanService,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	worker *jobs.Worker,
) *RepaymentService {
	return &RepaymentService{
		repo:            repo,
		loanRepo:        loanRepo,
		scheduleRepo:    scheduleRepo,
		metricsSvc:      metricsSvc,
		loanSvc:         loanSvc,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		worker:          worker,
	}
}

func (s *RepaymentService) FindByID(ctx context.Context, id uint) (*models.Repayment, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *RepaymentService) List(ctx context.Context, query *repository.RepaymentQuery) ([]models.Repayment, int64, error) {
	return s.repo.List(ctx, query)
}

// Create records a payment against a loan, spreads it over the schedule
// and reconciles the loan's lifecycle state.
//
// The amount is validated against the metrics engine before anything is
// persisted: zero or negative payments are rejected, as are payments
// that exceed what is actually left to pay.
func (s *RepaymentService) Create(ctx context.Context, input *CreateRepaymentInput, actorID uint, ip, userAgent string) (*models.Repayment, error) {
	loan, err := s.loanRepo.FindByID(ctx, input.LoanID)
	if err != nil {
		return nil, ErrNotFound
	}

	if !loan.AcceptsRepayments() {
		return nil, ErrLoanNotOpen
	}

	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	ledger, err := s.scheduleRepo.GetLoanLedger(ctx, input.LoanID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	m := s.metricsSvc.ComputeForLoan(loan, ledger, now)
	if input.Amount > m.TotalLeftToPay {
		return nil, ErrAmountExceedsBalance
	}

	items, err := s.scheduleRepo.FindByLoan(ctx, input.LoanID)
	if err != nil {
		return nil, err
	}

	allocations, touched, err := allocate(input.Amount, items, input.ScheduleItemID, now)
	if err != nil {
		return nil, err
	}

	method := input.Method
	if method == "" {
		method = models.RepaymentMethodCash
	} else if !models.ValidRepaymentMethod(method) {
		return nil, ErrInvalidMethod
	}

	repayment := &models.Repayment{
		LoanID:       input.LoanID,
		Amount:       input.Amount,
		Method:       method,
		Reference:    input.Reference,
		Notes:        input.Notes,
		ReceivedByID: &actorID,
		ReceivedAt:   now,
	}

	if err := s.repo.CreateWithAllocations(ctx, repayment, allocations, touched); err != nil {
		return nil, err
	}

	s.metricsSvc.InvalidateLoan(ctx, input.LoanID)

	s.auditSvc.Log(ctx, actorID, "CREATE", "Repayment", repayment.ID,
		fmt.Sprintf("Repayment of %.2f (%s) recorded against loan %s", input.Amount, method, loan.LoanNumber), ip, userAgent)

	// Status refreshes go through the worker queue so two repayments
	// against the same loan never race each other's refresh
	loanID := input.LoanID
	s.worker.Enqueue(func(ctx context.Context) error {
		if err := s.loanSvc.RefreshStatus(ctx, loanID); err != nil {
			logger.Error("Failed to refresh loan status after repayment", "loan_id", loanID, "error", err)
		}
		return s.notificationSvc.NotifyAdmins(ctx,
			"Repayment recorded",
			fmt.Sprintf("%.2f received against loan %s", input.Amount, loan.LoanNumber),
			models.NotificationTypeRepaymentPosted)
	})

	return repayment, nil
}

// MarkOverdueItems flips unpaid schedule items past their due date to
// OVERDUE. Runs as a scheduled job.
func (s *RepaymentService) MarkOverdueItems(ctx context.Context) error {
	count, err := s.scheduleRepo.MarkOverdue(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info(fmt.Sprintf("[Schedule] Marked %d installment(s) as overdue", count))
	}
	return nil
}

// allocate spreads a payment across schedule items. A targeted item (if
// given) is filled first, then the remainder waterfalls onto the oldest
// unsettled items. The caller caps the amount at the outstanding
// balance, so the waterfall always absorbs the full payment.
func allocate(amount float64, items []models.RepaymentScheduleItem, targetID *uint, now time.Time) ([]models.RepaymentAllocation, []models.RepaymentScheduleItem, error) {
	remaining := decimal.NewFromFloat(amount)
	var allocations []models.RepaymentAllocation
	var touched []models.RepaymentScheduleItem

	apply := func(item *models.RepaymentScheduleItem, portion decimal.Decimal) {
		item.PaidAmount = decimal.NewFromFloat(item.PaidAmount).Add(portion).InexactFloat64()
		item.Status = item.StatusFor(now)
		allocations = append(allocations, models.RepaymentAllocation{
			ScheduleItemID: item.ID,
			Amount:         portion.InexactFloat64(),
		})
		touched = append(touched, *item)
	}

	if targetID != nil {
		found := false
		for i := range items {
			item := &items[i]
			if item.ID != *targetID {
				continue
			}
			found = true
			due := decimal.NewFromFloat(item.Remaining())
			portion := decimal.Min(remaining, due)
			if portion.IsPositive() {
				apply(item, portion)
				remaining = remaining.Sub(portion)
			}
			break
		}
		if !found {
			return nil, nil, ErrNotFound
		}
	}

	for i := range items {
		if !remaining.IsPositive() {
			break
		}
		item := &items[i]
		if targetID != nil && item.ID == *targetID {
			continue
		}
		due := decimal.NewFromFloat(item.Remaining())
		if !due.IsPositive() {
			continue
		}
		portion := decimal.Min(remaining, due)
		apply(item, portion)
		remaining = remaining.Sub(portion)
	}

	return allocations, touched, nil
}
