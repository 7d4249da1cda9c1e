package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
)

// LoanLedger holds the aggregate payment position of a single loan
type LoanLedger struct {
	TotalDue         float64 `json:"total_due"`
	TotalPaid        float64 `json:"total_paid"`
	TotalOutstanding float64 `json:"total_outstanding"`
}

// RepaymentRepository defines the interface for repayment data access
type RepaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Repayment, error)
	FindByLoan(ctx context.Context, loanID uint) ([]models.Repayment, error)
	CreateWithAllocations(ctx context.Context, repayment *models.Repayment, allocations []models.RepaymentAllocation, touched []models.RepaymentScheduleItem) error
	List(ctx context.Context, query *RepaymentQuery) ([]models.Repayment, int64, error)
	SumByLoan(ctx context.Context, loanID uint) (float64, error)
	FindReceivedBetween(ctx context.Context, from, to string) ([]models.Repayment, error)
}

// RepaymentQuery extends ListQuery with repayment-specific filters
type RepaymentQuery struct {
	*ListQuery
	LoanID          uint
	UnionID         uint
	CreditOfficerID uint
	IsAdmin         bool
}

type repaymentRepository struct {
	db *gorm.DB
}

// NewRepaymentRepository creates a new repayment repository
func NewRepaymentRepository(db *gorm.DB) RepaymentRepository {
	return &repaymentRepository{db: db}
}

func (r *repaymentRepository) FindByID(ctx context.Context, id uint) (*models.Repayment, error) {
	var repayment models.Repayment
	err := r.db.WithContext(ctx).
		Preload("Loan.UnionMember").
		Preload("ReceivedBy").
		Preload("Allocations.ScheduleItem").
		First(&repayment, id).Error
	if err != nil {
		return nil, err
	}
	return &repayment, nil
}

func (r *repaymentRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.Repayment, error) {
	var repayments []models.Repayment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Preload("ReceivedBy").
		Preload("Allocations.ScheduleItem").
		Order("received_at DESC").
		Find(&repayments).Error
	return repayments, err
}

// CreateWithAllocations persists the repayment, its allocations and the
// recalculated schedule items in a single transaction so a failure part
// way through never leaves the ledger half-applied.
func (r *repaymentRepository) CreateWithAllocations(ctx context.Context, repayment *models.Repayment, allocations []models.RepaymentAllocation, touched []models.RepaymentScheduleItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(repayment).Error; err != nil {
			return err
		}

		for i := range allocations {
			allocations[i].RepaymentID = repayment.ID
		}
		if len(allocations) > 0 {
			if err := tx.Create(&allocations).Error; err != nil {
				return err
			}
		}

		for i := range touched {
			item := &touched[i]
			if err := tx.Model(&models.RepaymentScheduleItem{}).
				Where("id = ?", item.ID).
				Updates(map[string]interface{}{
					"paid_amount": item.PaidAmount,
					"status":      item.Status,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *repaymentRepository) List(ctx context.Context, query *RepaymentQuery) ([]models.Repayment, int64, error) {
	var repayments []models.Repayment
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Repayment{})

	if query.LoanID > 0 {
		db = db.Where("repayments.loan_id = ?", query.LoanID)
	}

	if query.UnionID > 0 || query.Search != "" || (!query.IsAdmin && query.CreditOfficerID > 0) {
		db = db.Joins("JOIN loans ON loans.id = repayments.loan_id")
	}
	if query.UnionID > 0 {
		db = db.Where("loans.union_id = ?", query.UnionID)
	}
	if !query.IsAdmin && query.CreditOfficerID > 0 {
		db = db.Joins("JOIN unions AS scope_u ON scope_u.id = loans.union_id").
			Where("scope_u.credit_officer_id = ?", query.CreditOfficerID)
	}

	// Apply date filters on received_at
	if val, ok := query.Filters["start_date"]; ok && val != "" {
		db = db.Where("repayments.received_at >= ?", val)
	}
	if val, ok := query.Filters["end_date"]; ok && val != "" {
		if len(val) == 10 {
			val += " 23:59:59"
		}
		db = db.Where("repayments.received_at <= ?", val)
	}

	if query.Filters["method"] != "" {
		db = db.Where("repayments.method = ?", query.Filters["method"])
	}

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Joins("LEFT JOIN union_members ON union_members.id = loans.union_member_id").
			Where("loans.loan_number ILIKE ? OR union_members.first_name ILIKE ? OR union_members.last_name ILIKE ? OR COALESCE(repayments.reference, '') ILIKE ?",
				search, search, search, search)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.SortBy != "" {
		field := query.SortBy
		switch field {
		case "received_at", "created_at", "amount":
			field = "repayments." + field
		}
		order := field
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("repayments.received_at DESC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Select("repayments.*").
		Preload("Loan.UnionMember").
		Preload("ReceivedBy").
		Find(&repayments).Error
	return repayments, total, err
}

func (r *repaymentRepository) SumByLoan(ctx context.Context, loanID uint) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.Repayment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("loan_id = ?", loanID).
		Scan(&total).Error
	return total, err
}

func (r *repaymentRepository) FindReceivedBetween(ctx context.Context, from, to string) ([]models.Repayment, error) {
	var repayments []models.Repayment
	if len(to) == 10 {
		to += " 23:59:59"
	}
	err := r.db.WithContext(ctx).
		Where("received_at >= ? AND received_at <= ?", from, to).
		Preload("Loan.UnionMember").
		Preload("Loan.Union").
		Preload("ReceivedBy").
		Order("received_at ASC").
		Find(&repayments).Error
	return repayments, err
}

// ScheduleItemRepository defines the interface for repayment schedule data access
type ScheduleItemRepository interface {
	FindByID(ctx context.Context, id uint) (*models.RepaymentScheduleItem, error)
	FindByLoan(ctx context.Context, loanID uint) ([]models.RepaymentScheduleItem, error)
	ReplaceForLoan(ctx context.Context, loanID uint, items []models.RepaymentScheduleItem) error
	GetLoanLedger(ctx context.Context, loanID uint) (*LoanLedger, error)
	MarkOverdue(ctx context.Context) (int64, error)
	FindDueTomorrow(ctx context.Context) ([]models.RepaymentScheduleItem, error)
}

type scheduleItemRepository struct {
	db *gorm.DB
}

// NewScheduleItemRepository creates a new schedule item repository
func NewScheduleItemRepository(db *gorm.DB) ScheduleItemRepository {
	return &scheduleItemRepository{db: db}
}

func (r *scheduleItemRepository) FindByID(ctx context.Context, id uint) (*models.RepaymentScheduleItem, error) {
	var item models.RepaymentScheduleItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *scheduleItemRepository) FindByLoan(ctx context.Context, loanID uint) ([]models.RepaymentScheduleItem, error) {
	var items []models.RepaymentScheduleItem
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("sequence ASC").
		Find(&items).Error
	return items, err
}

// ReplaceForLoan swaps the loan's schedule atomically. Used when a loan
// is disbursed or its schedule is regenerated by the backfill job.
func (r *scheduleItemRepository) ReplaceForLoan(ctx context.Context, loanID uint, items []models.RepaymentScheduleItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("loan_id = ?", loanID).
			Delete(&models.RepaymentScheduleItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		for i := range items {
			items[i].LoanID = loanID
		}
		return tx.Create(&items).Error
	})
}

// GetLoanLedger aggregates the loan's schedule into authoritative totals
func (r *scheduleItemRepository) GetLoanLedger(ctx context.Context, loanID uint) (*LoanLedger, error) {
	ledger := &LoanLedger{}
	err := r.db.WithContext(ctx).
		Model(&models.RepaymentScheduleItem{}).
		Select("COALESCE(SUM(total_due), 0) as total_due, COALESCE(SUM(paid_amount), 0) as total_paid, COALESCE(SUM(total_due - paid_amount), 0) as total_outstanding").
		Where("loan_id = ?", loanID).
		Scan(ledger).Error
	if err != nil {
		return nil, err
	}
	if ledger.TotalOutstanding < 0 {
		ledger.TotalOutstanding = 0
	}
	return ledger, nil
}

// MarkOverdue flips unpaid items past their due date to OVERDUE and
// returns how many rows changed
func (r *scheduleItemRepository) MarkOverdue(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RepaymentScheduleItem{}).
		Where("status IN ? AND due_date < CURRENT_DATE",
			[]string{models.ScheduleItemStatusPending, models.ScheduleItemStatusPartial}).
		Update("status", models.ScheduleItemStatusOverdue)
	return result.RowsAffected, result.Error
}

// FindDueTomorrow returns unpaid items falling due tomorrow on open
// loans, preloaded for reminder notifications
func (r *scheduleItemRepository) FindDueTomorrow(ctx context.Context) ([]models.RepaymentScheduleItem, error) {
	var items []models.RepaymentScheduleItem
	err := r.db.WithContext(ctx).
		Joins("JOIN loans ON loans.id = repayment_schedule_items.loan_id AND loans.status = ?",
			models.LoanStatusActive).
		Where("repayment_schedule_items.status IN ? AND repayment_schedule_items.due_date = CURRENT_DATE + INTERVAL '1 day'",
			[]string{models.ScheduleItemStatusPending, models.ScheduleItemStatusPartial}).
		Preload("Loan.UnionMember").
		Preload("Loan.Union.CreditOfficer").
		Order("repayment_schedule_items.due_date ASC").
		Find(&items).Error
	return items, err
}
