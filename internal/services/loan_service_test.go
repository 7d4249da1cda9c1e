package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/cache"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/jobs"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
)

// Mock LoanRepository (using embedding to avoid implementing all methods)
type mockLoanRepository struct {
	repository.LoanRepository
	mockFindByID            func(ctx context.Context, id uint) (*models.Loan, error)
	mockFindByIDWithDetails func(ctx context.Context, id uint) (*models.Loan, error)
	mockCreate              func(ctx context.Context, loan *models.Loan) error
	mockUpdate              func(ctx context.Context, loan *models.Loan) error
	mockNextSequence        func(ctx context.Context) (uint, error)
	mockFindOpenPastDue     func(ctx context.Context) ([]models.Loan, error)
	mockHasOpenLoans        func(ctx context.Context, memberID uint) (bool, error)
	mockList                func(ctx context.Context, query *repository.LoanQuery) ([]models.Loan, int64, error)
	mockGetStats            func(ctx context.Context) (*repository.LoanStats, error)
}

func (m *mockLoanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, errors.New("not found")
}
func (m *mockLoanRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error) {
	if m.mockFindByIDWithDetails != nil {
		return m.mockFindByIDWithDetails(ctx, id)
	}
	return nil, errors.New("not found")
}
func (m *mockLoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, loan)
	}
	return nil
}
func (m *mockLoanRepository) Update(ctx context.Context, loan *models.Loan) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, loan)
	}
	return nil
}
func (m *mockLoanRepository) NextSequence(ctx context.Context) (uint, error) {
	if m.mockNextSequence != nil {
		return m.mockNextSequence(ctx)
	}
	return 1, nil
}
func (m *mockLoanRepository) FindOpenPastDue(ctx context.Context) ([]models.Loan, error) {
	if m.mockFindOpenPastDue != nil {
		return m.mockFindOpenPastDue(ctx)
	}
	return nil, nil
}
func (m *mockLoanRepository) HasOpenLoans(ctx context.Context, memberID uint) (bool, error) {
	if m.mockHasOpenLoans != nil {
		return m.mockHasOpenLoans(ctx, memberID)
	}
	return false, nil
}
func (m *mockLoanRepository) List(ctx context.Context, query *repository.LoanQuery) ([]models.Loan, int64, error) {
	if m.mockList != nil {
		return m.mockList(ctx, query)
	}
	return nil, 0, nil
}
func (m *mockLoanRepository) GetStats(ctx context.Context) (*repository.LoanStats, error) {
	if m.mockGetStats != nil {
		return m.mockGetStats(ctx)
	}
	return &repository.LoanStats{}, nil
}

// Mock LoanTypeRepository
type mockLoanTypeRepository struct {
	repository.LoanTypeRepository
	mockFindByID func(ctx context.Context, id uint) (*models.LoanType, error)
}

func (m *mockLoanTypeRepository) FindByID(ctx context.Context, id uint) (*models.LoanType, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, errors.New("not found")
}

// Mock UnionMemberRepository
type mockUnionMemberRepository struct {
	repository.UnionMemberRepository
	mockFindByID func(ctx context.Context, id uint) (*models.UnionMember, error)
}

func (m *mockUnionMemberRepository) FindByID(ctx context.Context, id uint) (*models.UnionMember, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, errors.New("not found")
}

// Mock ScheduleItemRepository
type mockScheduleItemRepository struct {
	repository.ScheduleItemRepository
	mockFindByLoan     func(ctx context.Context, loanID uint) ([]models.RepaymentScheduleItem, error)
	mockReplaceForLoan func(ctx context.Context, loanID uint, items []models.RepaymentScheduleItem) error
	mockGetLoanLedger  func(ctx context.Context, loanID uint) (*repository.LoanLedger, error)
}

func (m *mockScheduleItemRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.RepaymentScheduleItem, error) {
	if m.mockFindByLoan != nil {
		return m.mockFindByLoan(ctx, loanID)
	}
	return nil, nil
}
func (m *mockScheduleItemRepository) ReplaceForLoan(ctx context.Context, loanID uint, items []models.RepaymentScheduleItem) error {
	if m.mockReplaceForLoan != nil {
		return m.mockReplaceForLoan(ctx, loanID, items)
	}
	return nil
}
func (m *mockScheduleItemRepository) GetLoanLedger(ctx context.Context, loanID uint) (*repository.LoanLedger, error) {
	if m.mockGetLoanLedger != nil {
		return m.mockGetLoanLedger(ctx, loanID)
	}
	return &repository.LoanLedger{}, nil
}
func (m *mockScheduleItemRepository) MarkOverdue(ctx context.Context) (int64, error) {
	return 0, nil
}

// Mock UserRepository
type mockUserRepository struct {
	repository.UserRepository
	mockFindAdmins func(ctx context.Context) ([]models.User, error)
}

func (m *mockUserRepository) FindAdmins(ctx context.Context) ([]models.User, error) {
	if m.mockFindAdmins != nil {
		return m.mockFindAdmins(ctx)
	}
	return nil, nil
}

// Mock NotificationRepository
type mockNotificationRepository struct {
	repository.NotificationRepository
	mockCreate func(ctx context.Context, notification *models.Notification) error
}

func (m *mockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, notification)
	}
	return nil
}

// Mock AuditLogRepository
type mockAuditLogRepository struct {
	repository.AuditLogRepository
}

func (m *mockAuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	return nil
}

type loanServiceFixture struct {
	svc          *LoanService
	loanRepo     *mockLoanRepository
	loanTypeRepo *mockLoanTypeRepository
	memberRepo   *mockUnionMemberRepository
	scheduleRepo *mockScheduleItemRepository
	worker       *jobs.Worker
}

func newLoanServiceFixture() *loanServiceFixture {
	loanRepo := &mockLoanRepository{}
	loanTypeRepo := &mockLoanTypeRepository{}
	memberRepo := &mockUnionMemberRepository{}
	scheduleRepo := &mockScheduleItemRepository{}
	worker := jobs.NewWorker(0)

	notifSvc := NewNotificationService(&mockNotificationRepository{}, &mockUserRepository{})
	auditSvc := NewAuditService(&mockAuditLogRepository{})
	metricsSvc := NewMetricsService(loanRepo, scheduleRepo, cache.NewNoop())

	svc := NewLoanService(loanRepo, loanTypeRepo, memberRepo, scheduleRepo,
		metricsSvc, notifSvc, nil, auditSvc, worker)

	return &loanServiceFixture{
		svc:          svc,
		loanRepo:     loanRepo,
		loanTypeRepo: loanTypeRepo,
		memberRepo:   memberRepo,
		scheduleRepo: scheduleRepo,
		worker:       worker,
	}
}

func TestLoanService_Create(t *testing.T) {
	f := newLoanServiceFixture()
	defer f.worker.Shutdown()

	f.memberRepo.mockFindByID = func(ctx context.Context, id uint) (*models.UnionMember, error) {
		return &models.UnionMember{ID: id, UnionID: 7, Code: "MB-0001"}, nil
	}
	f.loanTypeRepo.mockFindByID = func(ctx context.Context, id uint) (*models.LoanType, error) {
		return &models.LoanType{ID: id, Name: "Standard", MinAmount: 500, MaxAmount: 50000}, nil
	}
	f.loanRepo.mockNextSequence = func(ctx context.Context) (uint, error) {
		return 41, nil
	}

	var created *models.Loan
	f.loanRepo.mockCreate = func(ctx context.Context, loan *models.Loan) error {
		loan.ID = 41
		created = loan
		return nil
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loan, err := f.svc.Create(context.Background(), &CreateLoanInput{
		UnionMemberID:   12,
		LoanTypeID:      3,
		PrincipalAmount: 9000,
		TermCount:       3,
		TermUnit:        models.TermUnitMonth,
		StartDate:       &start,
	}, 1, "", "")

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "LN00000041", loan.LoanNumber)
	assert.Equal(t, uint(7), loan.UnionID)
	assert.Equal(t, models.LoanStatusDraft, loan.Status)
	require.NotNil(t, loan.EndDate)
	assert.Equal(t, start.AddDate(0, 3, 0), *loan.EndDate)
}

func TestLoanService_Create_MemberWithOpenLoan(t *testing.T) {
	f := newLoanServiceFixture()
	defer f.worker.Shutdown()

	f.memberRepo.mockFindByID = func(ctx context.Context, id uint) (*models.UnionMember, error) {
		return &models.UnionMember{ID: id, UnionID: 7}, nil
	}
	f.loanRepo.mockHasOpenLoans = func(ctx context.Context, memberID uint) (bool, error) {
		return true, nil
	}

	_, err := f.svc.Create(context.Background(), &CreateLoanInput{
		UnionMemberID:   12,
		LoanTypeID:      3,
		PrincipalAmount: 1000,
		TermCount:       2,
		TermUnit:        models.TermUnitWeek,
	}, 1, "", "")

	assert.ErrorIs(t, err, ErrMemberHasOpenLoan)
}

func TestLoanService_Create_AmountOutOfRange(t *testing.T) {
	f := newLoanServiceFixture()
	defer f.worker.Shutdown()

	f.memberRepo.mockFindByID = func(ctx context.Context, id uint) (*models.UnionMember, error) {
		return &models.UnionMember{ID: id, UnionID: 7}, nil
	}
	f.loanTypeRepo.mockFindByID = func(ctx context.Context, id uint) (*models.LoanType, error) {
		return &models.LoanType{ID: id, MinAmount: 500, MaxAmount: 5000}, nil
	}

	_, err := f.svc.Create(context.Background(), &CreateLoanInput{
		UnionMemberID:   12,
		LoanTypeID:      3,
		PrincipalAmount: 9000,
		TermCount:       3,
		TermUnit:        models.TermUnitMonth,
	}, 1, "", "")

	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestLoanService_Disburse_GeneratesSchedule(t *testing.T) {
	f := newLoanServiceFixture()
	defer f.worker.Shutdown()

	start := time.Now().Add(time.Hour)
	loan := &models.Loan{
		ID:              5,
		LoanNumber:      "LN00000005",
		PrincipalAmount: 1000,
		TermCount:       3,
		TermUnit:        models.TermUnitMonth,
		StartDate:       &start,
		Status:          models.LoanStatusApproved,
	}
	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return loan, nil
	}

	var generated []models.RepaymentScheduleItem
	f.scheduleRepo.mockReplaceForLoan = func(ctx context.Context, loanID uint, items []models.RepaymentScheduleItem) error {
		generated = items
		return nil
	}

	result, err := f.svc.Disburse(context.Background(), 5, 1, "", "")
	require.NoError(t, err)

	assert.Equal(t, models.LoanStatusActive, result.Status)
	assert.NotNil(t, result.DisbursedAt)

	require.Len(t, generated, 3)
	assert.InDelta(t, 333.33, generated[0].TotalDue, 0.001)
	assert.InDelta(t, 333.33, generated[1].TotalDue, 0.001)
	assert.InDelta(t, 333.34, generated[2].TotalDue, 0.001)

	total := 0.0
	for _, item := range generated {
		total += item.TotalDue
		assert.Equal(t, models.ScheduleItemStatusPending, item.Status)
	}
	assert.InDelta(t, 1000.0, total, 0.001)

	assert.Equal(t, start.AddDate(0, 1, 0), generated[0].DueDate)
	assert.Equal(t, start.AddDate(0, 3, 0), generated[2].DueDate)
}

func TestLoanService_Disburse_RejectsDraft(t *testing.T) {
	f := newLoanServiceFixture()
	defer f.worker.Shutdown()

	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return &models.Loan{ID: id, Status: models.LoanStatusDraft}, nil
	}

	_, err := f.svc.Disburse(context.Background(), 5, 1, "", "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLoanService_RefreshStatus_CompletesSettledLoan(t *testing.T) {
	f := newLoanServiceFixture()
	defer f.worker.Shutdown()

	end := time.Now().AddDate(0, 1, 0)
	loan := &models.Loan{
		ID:              5,
		PrincipalAmount: 1000,
		TermCount:       3,
		TermUnit:        models.TermUnitMonth,
		EndDate:         &end,
		Status:          models.LoanStatusActive,
	}
	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return loan, nil
	}
	f.scheduleRepo.mockGetLoanLedger = func(ctx context.Context, loanID uint) (*repository.LoanLedger, error) {
		return &repository.LoanLedger{TotalDue: 1000, TotalPaid: 1000, TotalOutstanding: 0}, nil
	}

	updated := false
	f.loanRepo.mockUpdate = func(ctx context.Context, l *models.Loan) error {
		updated = true
		return nil
	}

	err := f.svc.RefreshStatus(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, models.LoanStatusCompleted, loan.Status)
	assert.NotNil(t, loan.ClosedAt)
}

func TestLoanService_RefreshStatus_KeepsOpenLoanUntouched(t *testing.T) {
	f := newLoanServiceFixture()
	defer f.worker.Shutdown()

	end := time.Now().AddDate(0, 1, 0)
	loan := &models.Loan{
		ID:              5,
		PrincipalAmount: 1000,
		TermCount:       3,
		TermUnit:        models.TermUnitMonth,
		EndDate:         &end,
		Status:          models.LoanStatusActive,
	}
	f.loanRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Loan, error) {
		return loan, nil
	}
	f.scheduleRepo.mockGetLoanLedger = func(ctx context.Context, loanID uint) (*repository.LoanLedger, error) {
		return &repository.LoanLedger{TotalDue: 1000, TotalPaid: 400, TotalOutstanding: 600}, nil
	}

	f.loanRepo.mockUpdate = func(ctx context.Context, l *models.Loan) error {
		t.Fatal("Update should not be called for a loan that is still repaying on time")
		return nil
	}

	err := f.svc.RefreshStatus(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusActive, loan.Status)
}

func TestBuildSchedule_SingleInstallment(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loan := &models.Loan{
		ID:              1,
		PrincipalAmount: 500,
		TermCount:       1,
		TermUnit:        models.TermUnitWeek,
		StartDate:       &start,
	}

	items := buildSchedule(loan)
	require.Len(t, items, 1)
	assert.Equal(t, 500.0, items[0].TotalDue)
	assert.Equal(t, start.AddDate(0, 0, 7), items[0].DueDate)
}

func TestBuildSchedule_DailyTerm(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	loan := &models.Loan{
		ID:              1,
		PrincipalAmount: 70,
		TermCount:       7,
		TermUnit:        models.TermUnitDay,
		StartDate:       &start,
	}

	items := buildSchedule(loan)
	require.Len(t, items, 7)
	for i, item := range items {
		assert.Equal(t, i+1, item.Sequence)
		assert.Equal(t, 10.0, item.TotalDue)
		assert.Equal(t, start.AddDate(0, 0, i+1), item.DueDate)
	}
}
