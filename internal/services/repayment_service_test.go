package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/cache"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/jobs"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
)

// Mock RepaymentRepository
type mockRepaymentRepository struct {
	repository.RepaymentRepository
	mockCreateWithAllocations func(ctx context.Context, repayment *models.Repayment, allocations []models.RepaymentAllocation, touched []models.RepaymentScheduleItem) error
}

func (m *mockRepaymentRepository) CreateWithAllocations(ctx context.Context, repayment *models.Repayment, allocations []models.RepaymentAllocation, touched []models.RepaymentScheduleItem) error {
	if m.mockCreateWithAllocations != nil {
		return m.mockCreateWithAllocations(ctx, repayment, allocations, touched)
	}
	return nil
}

type repaymentServiceFixture struct {
	svc          *RepaymentService
	repo         *mockRepaymentRepository
	loanRepo     *mockLoanRepository
	scheduleRepo *mockScheduleItemRepository
	worker       *jobs.Worker
}

func newRepaymentServiceFixture() *repaymentServiceFixture {
	repo := &mockRepaymentRepository{}
	loanRepo := &mockLoanRepository{}
	scheduleRepo := &mockScheduleItemRepository{}
	worker := jobs.NewWorker(0)

	notifSvc := NewNotificationService(&mockNotificationRepository{}, &mockUserRepository{})
	auditSvc := NewAuditService(&mockAuditLogRepository{})
	metricsSvc := NewMetricsService(loanRepo, scheduleRepo, cache.NewNoop())
	loanSvc := NewLoanService(loanRepo, &mockLoanTypeRepository{}, &mockUnionMemberRepository{}, scheduleRepo,
		metricsSvc, notifSvc, nil, auditSvc, worker)

	svc := NewRepaymentService(repo, loanRepo, scheduleRepo, metricsSvc, loanSvc, notifSvc, auditSvc, worker)

	return &repaymentServiceFixture{
		svc:          svc,
		repo:         repo,
		loanRepo:     loanRepo,
		scheduleRepo: scheduleRepo,
		worker:       worker,
	}
}

func activeTestLoan() *models.Loan {
	end := time.Now().AddDate(0, 2, 0)
	return &models.Loan{
		ID:              9,
		LoanNumber:      "LN00000009",
		PrincipalAmount: 1000,
		TermCount:       4,
		TermUnit:        models.TermUnitWeek,
		EndDate:         &end,
		Status:          models.LoanStatusActive,
	}
}

func TestRepaymentService_Create_RejectsNonPositiveAmount(t *testing.T) {
	f := newRepaymentServiceFixture()
	defer f.worker.Shutdown()

	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return activeTestLoan(), nil
	}

	_, err := f.svc.Create(context.Background(), &CreateRepaymentInput{LoanID: 9, Amount: 0}, 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Create(context.Background(), &CreateRepaymentInput{LoanID: 9, Amount: -50}, 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRepaymentService_Create_RejectsClosedLoan(t *testing.T) {
	f := newRepaymentServiceFixture()
	defer f.worker.Shutdown()

	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		loan := activeTestLoan()
		loan.Status = models.LoanStatusCompleted
		return loan, nil
	}

	_, err := f.svc.Create(context.Background(), &CreateRepaymentInput{LoanID: 9, Amount: 100}, 1, "", "")
	assert.ErrorIs(t, err, ErrLoanNotOpen)
}

func TestRepaymentService_Create_RejectsAmountExceedingBalance(t *testing.T) {
	f := newRepaymentServiceFixture()
	defer f.worker.Shutdown()

	// Two days past the deadline with a daily penalty accruing: the cap
	// is still the outstanding balance, penalties are never payable
	// through this endpoint.
	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		loan := activeTestLoan()
		end := time.Now().AddDate(0, 0, -2)
		loan.EndDate = &end
		loan.PenaltyFeePerDayAmount = 50
		return loan, nil
	}
	f.scheduleRepo.mockGetLoanLedger = func(ctx context.Context, loanID uint) (*repository.LoanLedger, error) {
		return &repository.LoanLedger{TotalDue: 1000, TotalPaid: 600, TotalOutstanding: 400}, nil
	}
	f.scheduleRepo.mockFindByLoan = func(ctx context.Context, loanID uint) ([]models.RepaymentScheduleItem, error) {
		return []models.RepaymentScheduleItem{
			{ID: 1, LoanID: 9, Sequence: 1, TotalDue: 1000, PaidAmount: 600, Status: models.ScheduleItemStatusOverdue, DueDate: time.Now().AddDate(0, 0, -2)},
		}, nil
	}

	_, err := f.svc.Create(context.Background(), &CreateRepaymentInput{LoanID: 9, Amount: 401}, 1, "", "")
	assert.ErrorIs(t, err, ErrAmountExceedsBalance)

	// Balance plus the accrued penalty is over the cap too
	_, err = f.svc.Create(context.Background(), &CreateRepaymentInput{LoanID: 9, Amount: 500}, 1, "", "")
	assert.ErrorIs(t, err, ErrAmountExceedsBalance)

	// Settling the exact balance goes through
	repayment, err := f.svc.Create(context.Background(), &CreateRepaymentInput{LoanID: 9, Amount: 400}, 1, "", "")
	require.NoError(t, err)
	assert.InDelta(t, 400.0, repayment.Amount, 0.001)
}

func TestRepaymentService_Create_AllocatesOldestFirst(t *testing.T) {
	f := newRepaymentServiceFixture()
	defer f.worker.Shutdown()

	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return activeTestLoan(), nil
	}
	f.scheduleRepo.mockGetLoanLedger = func(ctx context.Context, loanID uint) (*repository.LoanLedger, error) {
		return &repository.LoanLedger{TotalDue: 1000, TotalPaid: 250, TotalOutstanding: 750}, nil
	}

	due := time.Now().AddDate(0, 0, 7)
	f.scheduleRepo.mockFindByLoan = func(ctx context.Context, loanID uint) ([]models.RepaymentScheduleItem, error) {
		return []models.RepaymentScheduleItem{
			{ID: 1, LoanID: 9, Sequence: 1, TotalDue: 250, PaidAmount: 250, Status: models.ScheduleItemStatusPaid, DueDate: due},
			{ID: 2, LoanID: 9, Sequence: 2, TotalDue: 250, PaidAmount: 0, Status: models.ScheduleItemStatusPending, DueDate: due},
			{ID: 3, LoanID: 9, Sequence: 3, TotalDue: 250, PaidAmount: 0, Status: models.ScheduleItemStatusPending, DueDate: due},
			{ID: 4, LoanID: 9, Sequence: 4, TotalDue: 250, PaidAmount: 0, Status: models.ScheduleItemStatusPending, DueDate: due},
		}, nil
	}

	var gotAllocations []models.RepaymentAllocation
	var gotTouched []models.RepaymentScheduleItem
	f.repo.mockCreateWithAllocations = func(ctx context.Context, repayment *models.Repayment, allocations []models.RepaymentAllocation, touched []models.RepaymentScheduleItem) error {
		repayment.ID = 77
		gotAllocations = allocations
		gotTouched = touched
		return nil
	}

	repayment, err := f.svc.Create(context.Background(), &CreateRepaymentInput{
		LoanID: 9,
		Amount: 300,
		Method: models.RepaymentMethodTransfer,
	}, 1, "", "")
	require.NoError(t, err)

	assert.Equal(t, models.RepaymentMethodTransfer, repayment.Method)

	// 300 fills installment 2 completely and leaves 50 on installment 3
	require.Len(t, gotAllocations, 2)
	assert.Equal(t, uint(2), gotAllocations[0].ScheduleItemID)
	assert.InDelta(t, 250.0, gotAllocations[0].Amount, 0.001)
	assert.Equal(t, uint(3), gotAllocations[1].ScheduleItemID)
	assert.InDelta(t, 50.0, gotAllocations[1].Amount, 0.001)

	require.Len(t, gotTouched, 2)
	assert.Equal(t, models.ScheduleItemStatusPaid, gotTouched[0].Status)
	assert.Equal(t, models.ScheduleItemStatusPartial, gotTouched[1].Status)
}

func TestRepaymentService_Create_DefaultsMethodToCash(t *testing.T) {
	f := newRepaymentServiceFixture()
	defer f.worker.Shutdown()

	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return activeTestLoan(), nil
	}
	f.scheduleRepo.mockGetLoanLedger = func(ctx context.Context, loanID uint) (*repository.LoanLedger, error) {
		return &repository.LoanLedger{TotalDue: 1000, TotalPaid: 0, TotalOutstanding: 1000}, nil
	}
	f.scheduleRepo.mockFindByLoan = func(ctx context.Context, loanID uint) ([]models.RepaymentScheduleItem, error) {
		return []models.RepaymentScheduleItem{
			{ID: 1, LoanID: 9, Sequence: 1, TotalDue: 1000, DueDate: time.Now().AddDate(0, 0, 7), Status: models.ScheduleItemStatusPending},
		}, nil
	}

	repayment, err := f.svc.Create(context.Background(), &CreateRepaymentInput{LoanID: 9, Amount: 100}, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, models.RepaymentMethodCash, repayment.Method)
}

func TestRepaymentService_Create_RejectsUnknownMethod(t *testing.T) {
	f := newRepaymentServiceFixture()
	defer f.worker.Shutdown()

	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return activeTestLoan(), nil
	}
	f.scheduleRepo.mockGetLoanLedger = func(ctx context.Context, loanID uint) (*repository.LoanLedger, error) {
		return &repository.LoanLedger{TotalDue: 1000, TotalPaid: 0, TotalOutstanding: 1000}, nil
	}
	f.scheduleRepo.mockFindByLoan = func(ctx context.Context, loanID uint) ([]models.RepaymentScheduleItem, error) {
		return []models.RepaymentScheduleItem{
			{ID: 1, LoanID: 9, Sequence: 1, TotalDue: 1000, DueDate: time.Now().AddDate(0, 0, 7), Status: models.ScheduleItemStatusPending},
		}, nil
	}

	_, err := f.svc.Create(context.Background(), &CreateRepaymentInput{LoanID: 9, Amount: 100, Method: "CHEQUE"}, 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidMethod)

	repayment, err := f.svc.Create(context.Background(), &CreateRepaymentInput{LoanID: 9, Amount: 100, Method: models.RepaymentMethodMobile}, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, "MOBILE_MONEY", repayment.Method)
}

func TestAllocate_TargetedItemFirst(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, 7)
	items := []models.RepaymentScheduleItem{
		{ID: 1, Sequence: 1, TotalDue: 100, PaidAmount: 0, DueDate: due},
		{ID: 2, Sequence: 2, TotalDue: 100, PaidAmount: 0, DueDate: due},
		{ID: 3, Sequence: 3, TotalDue: 100, PaidAmount: 0, DueDate: due},
	}

	target := uint(3)
	allocations, touched, err := allocate(150, items, &target, now)
	require.NoError(t, err)

	// Installment 3 is filled first, the remainder waterfalls onto 1
	require.Len(t, allocations, 2)
	assert.Equal(t, uint(3), allocations[0].ScheduleItemID)
	assert.InDelta(t, 100.0, allocations[0].Amount, 0.001)
	assert.Equal(t, uint(1), allocations[1].ScheduleItemID)
	assert.InDelta(t, 50.0, allocations[1].Amount, 0.001)
	assert.Len(t, touched, 2)
}

func TestAllocate_UnknownTargetFails(t *testing.T) {
	now := time.Now()
	items := []models.RepaymentScheduleItem{
		{ID: 1, Sequence: 1, TotalDue: 100, DueDate: now.AddDate(0, 0, 7)},
	}

	target := uint(99)
	_, _, err := allocate(50, items, &target, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllocate_StopsAtScheduleTotals(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, -7)
	items := []models.RepaymentScheduleItem{
		{ID: 1, Sequence: 1, TotalDue: 100, PaidAmount: 100, DueDate: due},
		{ID: 2, Sequence: 2, TotalDue: 100, PaidAmount: 0, DueDate: due},
	}

	// Only installment 2 is still owed; the surplus 30 is not forced
	// onto any settled item
	allocations, touched, err := allocate(130, items, nil, now)
	require.NoError(t, err)

	require.Len(t, allocations, 1)
	assert.Equal(t, uint(2), allocations[0].ScheduleItemID)
	assert.InDelta(t, 100.0, allocations[0].Amount, 0.001)

	require.Len(t, touched, 1)
	assert.InDelta(t, 100.0, touched[0].PaidAmount, 0.001)
	assert.Equal(t, models.ScheduleItemStatusPaid, touched[0].Status)
}

func TestRepaymentService_MarkOverdueItems(t *testing.T) {
	f := newRepaymentServiceFixture()
	defer f.worker.Shutdown()

	err := f.svc.MarkOverdueItems(context.Background())
	assert.NoError(t, err)
}
