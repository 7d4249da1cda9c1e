package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/jobs"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/statemachine"
	"github.com/Tee-David/Millenium-Potters-sub001/pkg/logger"
)

// CreateLoanInput carries the fields needed to register a loan
type CreateLoanInput struct {
	UnionMemberID          uint       `json:"union_member_id" binding:"required"`
	LoanTypeID             uint       `json:"loan_type_id" binding:"required"`
	PrincipalAmount        float64    `json:"principal_amount" binding:"required"`
	TermCount              int        `json:"term_count" binding:"required"`
	TermUnit               string     `json:"term_unit" binding:"required"`
	StartDate              *time.Time `json:"start_date"`
	ProcessingFeeAmount    float64    `json:"processing_fee_amount"`
	PenaltyFeePerDayAmount float64    `json:"penalty_fee_per_day_amount"`
	Notes                  *string    `json:"notes"`
}

type LoanService struct {
	repo            repository.LoanRepository
	loanTypeRepo    repository.LoanTypeRepository
	memberRepo      repository.UnionMemberRepository
	scheduleRepo    repository.ScheduleItemRepository
	metricsSvc      *MetricsService
	notificationSvc *NotificationService
	emailSvc        *EmailService
	auditSvc        *AuditService
	worker          *jobs.Worker
}

func NewLoanService(
	repo repository.LoanRepository,
	loanTypeRepo repository.LoanTypeRepository,
	memberRepo repository.UnionMemberRepository,
	scheduleRepo repository.ScheduleItemRepository,
	metricsSvc *MetricsService,
	notificationSvc *NotificationService,
	emailSvc *EmailService,
	auditSvc *AuditService,
	worker *jobs.Worker,
) *LoanService {
	return &LoanService{
		repo:            repo,
		loanTypeRepo:    loanTypeRepo,
		memberRepo:      memberRepo,
		scheduleRepo:    scheduleRepo,
		metricsSvc:      metricsSvc,
		notificationSvc: notificationSvc,
		emailSvc:        emailSvc,
		auditSvc:        auditSvc,
		worker:          worker,
	}
}

func (s *LoanService) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	return s.repo.FindByIDWithDetails(ctx, id)
}

func (s *LoanService) List(ctx context.Context, query *repository.LoanQuery) ([]models.Loan, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *LoanService) GetStats(ctx context.Context) (*repository.LoanStats, error) {
	return s.repo.GetStats(ctx)
}

// Create registers a new loan in draft state
func (s *LoanService) Create(ctx context.Context, input *CreateLoanInput, actorID uint, ip, userAgent string) (*models.Loan, error) {
	member, err := s.memberRepo.FindByID(ctx, input.UnionMemberID)
	if err != nil {
		return nil, ErrNotFound
	}

	// A member carries at most one open loan at a time
	open, err := s.repo.HasOpenLoans(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrMemberHasOpenLoan
	}

	loanType, err := s.loanTypeRepo.FindByID(ctx, input.LoanTypeID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !loanType.AllowsAmount(input.PrincipalAmount) {
		return nil, ErrAmountOutOfRange
	}

	if input.PrincipalAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if input.TermCount <= 0 {
		return nil, fmt.Errorf("term count must be greater than zero")
	}
	switch input.TermUnit {
	case models.TermUnitDay, models.TermUnitWeek, models.TermUnitMonth:
	default:
		return nil, fmt.Errorf("unknown term unit: %s", input.TermUnit)
	}

	seq, err := s.repo.NextSequence(ctx)
	if err != nil {
		return nil, err
	}

	startDate := input.StartDate
	if startDate == nil {
		now := time.Now()
		startDate = &now
	}
	endDate := termEndDate(*startDate, input.TermCount, input.TermUnit)

	loan := &models.Loan{
		LoanNumber:             fmt.Sprintf("LN%08d", seq),
		UnionID:                member.UnionID,
		UnionMemberID:          member.ID,
		LoanTypeID:             loanType.ID,
		CreatedByID:            &actorID,
		PrincipalAmount:        input.PrincipalAmount,
		TermCount:              input.TermCount,
		TermUnit:               input.TermUnit,
		StartDate:              startDate,
		EndDate:                &endDate,
		ProcessingFeeAmount:    input.ProcessingFeeAmount,
		PenaltyFeePerDayAmount: input.PenaltyFeePerDayAmount,
		Status:                 models.LoanStatusDraft,
		Notes:                  input.Notes,
	}

	if err := s.repo.Create(ctx, loan); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "CREATE", "Loan", loan.ID,
		fmt.Sprintf("Loan %s for %.2f created for member %s", loan.LoanNumber, loan.PrincipalAmount, member.Code), ip, userAgent)

	return loan, nil
}

// Submit sends a draft loan for approval
func (s *LoanService) Submit(ctx context.Context, id uint, actorID uint, ip, userAgent string) (*models.Loan, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	machine := statemachine.NewLoanFSM(loan)
	if err := machine.Submit(ctx); err != nil {
		return nil, ErrInvalidState
	}

	if err := s.repo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyAdmins(ctx,
			"Loan pending approval",
			fmt.Sprintf("Loan %s is waiting for approval", loan.LoanNumber),
			models.NotificationTypeLoanSubmitted)
	})

	s.auditSvc.Log(ctx, actorID, "SUBMIT", "Loan", loan.ID,
		fmt.Sprintf("Loan %s submitted for approval", loan.LoanNumber), ip, userAgent)

	return loan, nil
}

// Approve marks a pending loan as approved
func (s *LoanService) Approve(ctx context.Context, id uint, actorID uint, ip, userAgent string) (*models.Loan, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	machine := statemachine.NewLoanFSM(loan)
	if err := machine.Approve(ctx); err != nil {
		return nil, ErrInvalidState
	}

	now := time.Now()
	loan.ApprovedAt = &now
	loan.ApprovedByID = &actorID

	if err := s.repo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		full, err := s.repo.FindByIDWithDetails(ctx, loan.ID)
		if err != nil {
			return err
		}
		if err := s.emailSvc.SendLoanApproved(ctx, full); err != nil {
			logger.Error("Failed to send approval email", "loan_id", loan.ID, "error", err)
		}
		if full.Union.CreditOfficerID == nil {
			return nil
		}
		return s.notificationSvc.NotifyUser(ctx, *full.Union.CreditOfficerID,
			"Loan approved",
			fmt.Sprintf("Loan %s has been approved", loan.LoanNumber),
			models.NotificationTypeLoanApproved)
	})

	s.auditSvc.Log(ctx, actorID, "APPROVE", "Loan", loan.ID,
		fmt.Sprintf("Loan %s approved", loan.LoanNumber), ip, userAgent)

	return loan, nil
}

// Disburse activates an approved loan: the clock starts, the repayment
// schedule is generated and payments can be recorded from here on.
func (s *LoanService) Disburse(ctx context.Context, id uint, actorID uint, ip, userAgent string) (*models.Loan, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	machine := statemachine.NewLoanFSM(loan)
	if err := machine.Disburse(ctx); err != nil {
		return nil, ErrInvalidState
	}

	now := time.Now()
	loan.DisbursedAt = &now
	if loan.StartDate == nil || loan.StartDate.Before(now.AddDate(0, 0, -1)) {
		// The term runs from disbursement when the planned start has lapsed
		loan.StartDate = &now
		endDate := termEndDate(now, loan.TermCount, loan.TermUnit)
		loan.EndDate = &endDate
	}

	if err := s.repo.Update(ctx, loan); err != nil {
		return nil, err
	}

	schedule := buildSchedule(loan)
	if err := s.scheduleRepo.ReplaceForLoan(ctx, loan.ID, schedule); err != nil {
		return nil, fmt.Errorf("failed to generate repayment schedule: %w", err)
	}

	s.metricsSvc.InvalidateLoan(ctx, loan.ID)

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notifyCreditOfficer(ctx, loan,
			"Loan disbursed",
			fmt.Sprintf("Loan %s is now active with %d installment(s)", loan.LoanNumber, len(schedule)),
			models.NotificationTypeLoanDisbursed)
	})

	s.auditSvc.Log(ctx, actorID, "DISBURSE", "Loan", loan.ID,
		fmt.Sprintf("Loan %s disbursed, %d installments scheduled", loan.LoanNumber, len(schedule)), ip, userAgent)

	return loan, nil
}

// Cancel voids a loan that has not been disbursed yet
func (s *LoanService) Cancel(ctx context.Context, id uint, actorID uint, reason string, ip, userAgent string) (*models.Loan, error) {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	machine := statemachine.NewLoanFSM(loan)
	if err := machine.Cancel(ctx); err != nil {
		return nil, ErrInvalidState
	}

	if reason != "" {
		loan.Notes = &reason
	}
	now := time.Now()
	loan.ClosedAt = &now

	if err := s.repo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "CANCEL", "Loan", loan.ID,
		fmt.Sprintf("Loan %s cancelled: %s", loan.LoanNumber, reason), ip, userAgent)

	return loan, nil
}

// RefreshStatus reconciles the loan's lifecycle state with its ledger:
// a settled loan closes out, an open loan past its deadline defaults.
func (s *LoanService) RefreshStatus(ctx context.Context, id uint) error {
	loan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if loan.Status != models.LoanStatusActive && loan.Status != models.LoanStatusDefaulted {
		return nil
	}

	ledger, err := s.scheduleRepo.GetLoanLedger(ctx, id)
	if err != nil {
		return err
	}
	m := s.metricsSvc.ComputeForLoan(loan, ledger, time.Now())

	machine := statemachine.NewLoanFSM(loan)
	switch {
	case m.TotalLeftToPay == 0:
		if err := machine.Complete(ctx); err != nil {
			return err
		}
		now := time.Now()
		loan.ClosedAt = &now
		if err := s.repo.Update(ctx, loan); err != nil {
			return err
		}
		s.metricsSvc.InvalidateLoan(ctx, loan.ID)
		s.worker.EnqueueAsync(func(ctx context.Context) error {
			return s.notifyCreditOfficer(ctx, loan,
				"Loan completed",
				fmt.Sprintf("Loan %s has been fully repaid", loan.LoanNumber),
				models.NotificationTypeLoanCompleted)
		})
	case m.DaysRemaining < 0 && loan.Status == models.LoanStatusActive:
		if err := machine.Default(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, loan); err != nil {
			return err
		}
		s.metricsSvc.InvalidateLoan(ctx, loan.ID)
	}

	return nil
}

// MarkDefaultedLoans flags active loans past their end date. Runs as a
// scheduled job.
func (s *LoanService) MarkDefaultedLoans(ctx context.Context) error {
	loans, err := s.repo.FindOpenPastDue(ctx)
	if err != nil {
		return err
	}

	defaulted := 0
	for i := range loans {
		loan := &loans[i]
		if loan.Status != models.LoanStatusActive {
			continue
		}
		if loan.SumPaidFromSchedule() >= loan.PrincipalAmount {
			continue
		}

		machine := statemachine.NewLoanFSM(loan)
		if err := machine.Default(ctx); err != nil {
			continue
		}
		if err := s.repo.Update(ctx, loan); err != nil {
			logger.Error("Failed to mark loan defaulted", "loan_id", loan.ID, "error", err)
			continue
		}
		s.metricsSvc.InvalidateLoan(ctx, loan.ID)

		s.notifyCreditOfficer(ctx, loan,
			"Loan defaulted",
			fmt.Sprintf("Loan %s passed its end date with an outstanding balance", loan.LoanNumber),
			models.NotificationTypeLoanDefaulted)
		defaulted++
	}

	if defaulted > 0 {
		logger.Info(fmt.Sprintf("[Loans] Marked %d loan(s) as defaulted", defaulted))
	}
	return nil
}

// GenerateMissingSchedules backfills repayment schedules for open loans
// that have none. Covers loans migrated in from the previous system.
func (s *LoanService) GenerateMissingSchedules(ctx context.Context) error {
	loans, err := s.repo.FindOpenWithoutSchedule(ctx)
	if err != nil {
		return err
	}

	for i := range loans {
		loan := &loans[i]
		schedule := buildSchedule(loan)
		if err := s.scheduleRepo.ReplaceForLoan(ctx, loan.ID, schedule); err != nil {
			logger.Error("Failed to backfill schedule", "loan_id", loan.ID, "error", err)
			continue
		}
		s.metricsSvc.InvalidateLoan(ctx, loan.ID)
	}

	if len(loans) > 0 {
		logger.Info(fmt.Sprintf("[Loans] Backfilled schedules for %d loan(s)", len(loans)))
	}
	return nil
}

// SendDueTomorrowReminders emails each credit officer the installments
// in their portfolio falling due tomorrow. Runs as a scheduled job.
func (s *LoanService) SendDueTomorrowReminders(ctx context.Context) error {
	items, err := s.scheduleRepo.FindDueTomorrow(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	byOfficer := make(map[uint][]models.RepaymentScheduleItem)
	officers := make(map[uint]*models.User)
	for _, item := range items {
		officer := item.Loan.Union.CreditOfficer
		if officer == nil {
			continue
		}
		byOfficer[officer.ID] = append(byOfficer[officer.ID], item)
		officers[officer.ID] = officer
	}

	for officerID, officerItems := range byOfficer {
		officer := officers[officerID]
		if err := s.emailSvc.SendDueInstallments(ctx, officer, officerItems); err != nil {
			logger.Error("Failed to send due reminder", "user_id", officerID, "error", err)
		}
		s.notificationSvc.NotifyUser(ctx, officerID,
			"Installments due tomorrow",
			fmt.Sprintf("%d installment(s) in your portfolio fall due tomorrow", len(officerItems)),
			models.NotificationTypeLoanOverdue)
	}

	logger.Info(fmt.Sprintf("[Reminders] Sent due-tomorrow reminders to %d officer(s)", len(byOfficer)))
	return nil
}

func (s *LoanService) notifyCreditOfficer(ctx context.Context, loan *models.Loan, title, message, notifType string) error {
	full, err := s.repo.FindByIDWithDetails(ctx, loan.ID)
	if err != nil {
		return err
	}
	if full.Union.CreditOfficerID == nil {
		return nil
	}
	return s.notificationSvc.NotifyUser(ctx, *full.Union.CreditOfficerID, title, message, notifType)
}

// termEndDate computes the contractual end date from a start date and
// term. Months use calendar arithmetic here; the flat 30-day month only
// applies to the daily amortization figure.
func termEndDate(start time.Time, count int, unit string) time.Time {
	switch unit {
	case models.TermUnitWeek:
		return start.AddDate(0, 0, count*7)
	case models.TermUnitMonth:
		return start.AddDate(0, count, 0)
	default:
		return start.AddDate(0, 0, count)
	}
}

// installmentDueDate returns the due date of the n-th installment
// (1-based) counting from the start date
func installmentDueDate(start time.Time, sequence int, unit string) time.Time {
	switch unit {
	case models.TermUnitWeek:
		return start.AddDate(0, 0, sequence*7)
	case models.TermUnitMonth:
		return start.AddDate(0, sequence, 0)
	default:
		return start.AddDate(0, 0, sequence)
	}
}

// buildSchedule splits the principal into equal installments, one per
// term unit. Amounts are computed with decimals so cents never leak;
// the last installment absorbs the rounding remainder.
func buildSchedule(loan *models.Loan) []models.RepaymentScheduleItem {
	count := loan.TermCount
	if count < 1 {
		count = 1
	}

	start := time.Now()
	if loan.StartDate != nil {
		start = *loan.StartDate
	}

	principal := decimal.NewFromFloat(loan.PrincipalAmount)
	per := principal.DivRound(decimal.NewFromInt(int64(count)), 2)

	items := make([]models.RepaymentScheduleItem, 0, count)
	allocated := decimal.Zero
	for i := 1; i <= count; i++ {
		amount := per
		if i == count {
			amount = principal.Sub(allocated)
		}
		allocated = allocated.Add(amount)

		items = append(items, models.RepaymentScheduleItem{
			LoanID:   loan.ID,
			Sequence: i,
			DueDate:  installmentDueDate(start, i, loan.TermUnit),
			TotalDue: amount.InexactFloat64(),
			Status:   models.ScheduleItemStatusPending,
		})
	}

	return items
}
