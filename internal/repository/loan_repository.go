package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
)

// LoanRepository defines the interface for loan data access
type LoanRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Loan, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error)
	FindByLoanNumber(ctx context.Context, loanNumber string) (*models.Loan, error)
	FindByMember(ctx context.Context, memberID uint) ([]models.Loan, error)
	Create(ctx context.Context, loan *models.Loan) error
	Update(ctx context.Context, loan *models.Loan) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *LoanQuery) ([]models.Loan, int64, error)
	NextSequence(ctx context.Context) (uint, error)
	FindOpenPastDue(ctx context.Context) ([]models.Loan, error)
	FindOpenWithoutSchedule(ctx context.Context) ([]models.Loan, error)
	GetStats(ctx context.Context) (*LoanStats, error)
	HasOpenLoans(ctx context.Context, memberID uint) (bool, error)
	HasOpenLoansForUnion(ctx context.Context, unionID uint) (bool, error)
	SumPaidByLoanIDs(ctx context.Context, loanIDs []uint) (map[uint]float64, error)
}

// LoanQuery extends ListQuery with loan-specific filters
type LoanQuery struct {
	*ListQuery
	UserID          uint
	IsAdmin         bool
	Status          string
	UnionID         uint
	UnionMemberID   uint
	CreditOfficerID uint
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) FindByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	// Belongs-to associations load via Joins in one query; the one-to-many
	// schedule and repayments stay as Preloads.
	err := r.db.WithContext(ctx).
		Joins("Union").
		Joins("UnionMember").
		Joins("LoanType").
		Joins("CreatedBy").
		Joins("ApprovedBy").
		Preload("ScheduleItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Repayments", func(db *gorm.DB) *gorm.DB {
			return db.Order("received_at DESC")
		}).
		Preload("Repayments.ReceivedBy").
		Preload("Repayments.Allocations.ScheduleItem").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByLoanNumber(ctx context.Context, loanNumber string) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Where("loan_number = ?", loanNumber).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByMember(ctx context.Context, memberID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("union_member_id = ?", memberID).
		Preload("LoanType").
		Preload("ScheduleItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Order("created_at DESC").
		Find(&loans).Error
	return loans, err
}

func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *loanRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Loan{}, id).Error
}

func (r *loanRepository) List(ctx context.Context, query *LoanQuery) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Loan{})

	// Credit officers only see loans of the unions they manage
	if !query.IsAdmin && query.CreditOfficerID > 0 {
		db = db.Joins("JOIN unions AS scope_u ON scope_u.id = loans.union_id").
			Where("scope_u.credit_officer_id = ?", query.CreditOfficerID)
	}

	// Apply status filter (single or multiple via status_in)
	if query.Filters != nil {
		if val, ok := query.Filters["status_in"]; ok && val != "" {
			statuses := strings.Split(val, ",")
			for i, s := range statuses {
				statuses[i] = strings.TrimSpace(s)
			}
			if len(statuses) > 0 {
				db = db.Where("loans.status IN ?", statuses)
			}
		}
	}
	if query.Filters == nil || query.Filters["status_in"] == "" {
		if query.Status != "" {
			db = db.Where("loans.status = ?", query.Status)
		}
	}

	if query.UnionID > 0 {
		db = db.Where("loans.union_id = ?", query.UnionID)
	}
	if query.UnionMemberID > 0 {
		db = db.Where("loans.union_member_id = ?", query.UnionMemberID)
	}

	// Apply date filters on created_at
	if query.Filters != nil {
		if val, ok := query.Filters["start_date"]; ok && val != "" {
			db = db.Where("loans.created_at >= ?", val)
		}
		if val, ok := query.Filters["end_date"]; ok && val != "" {
			if len(val) == 10 { // YYYY-MM-DD
				val += " 23:59:59"
			}
			db = db.Where("loans.created_at <= ?", val)
		}
	}

	// Apply search (JOINs only for filtering; associations loaded via Preload below)
	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Joins("LEFT JOIN union_members ON union_members.id = loans.union_member_id").
			Joins("LEFT JOIN unions ON unions.id = loans.union_id").
			Where("loans.loan_number ILIKE ? OR union_members.first_name ILIKE ? OR union_members.last_name ILIKE ? OR union_members.code ILIKE ? OR unions.name ILIKE ?",
				search, search, search, search, search)
	}

	// Count total using a separate session so the main query is not altered by Count()
	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply sorting
	if query.SortBy != "" {
		field := query.SortBy
		switch field {
		case "created_at", "updated_at", "end_date", "principal_amount", "status", "loan_number":
			field = "loans." + field
		}
		order := field
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("loans.created_at DESC")
	}

	// Apply pagination
	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Select("loans.*").
		Preload("Union").
		Preload("UnionMember").
		Preload("LoanType").
		Preload("CreatedBy").
		Find(&loans).Error
	if err != nil {
		return nil, 0, err
	}

	// Attach paid totals via a single aggregation instead of preloading
	// every schedule row
	if len(loans) > 0 {
		var loanIDs []uint
		for _, l := range loans {
			loanIDs = append(loanIDs, l.ID)
		}
		totals, aggErr := r.SumPaidByLoanIDs(ctx, loanIDs)
		if aggErr == nil {
			for i := range loans {
				if val, ok := totals[loans[i].ID]; ok {
					loans[i].TotalPaid = val
				}
			}
		}
	}

	return loans, total, err
}

// NextSequence returns the next value for loan number generation
func (r *loanRepository) NextSequence(ctx context.Context) (uint, error) {
	var maxID *uint
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Select("MAX(id)").
		Scan(&maxID).Error
	if err != nil {
		return 0, err
	}
	if maxID == nil {
		return 1, nil
	}
	return *maxID + 1, nil
}

// FindOpenPastDue returns active or defaulted loans whose end date has
// passed, with the member preloaded for notification templates
func (r *loanRepository) FindOpenPastDue(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("loans.status IN ? AND loans.end_date < CURRENT_DATE",
			[]string{models.LoanStatusActive, models.LoanStatusDefaulted}).
		Preload("Union.CreditOfficer").
		Preload("UnionMember").
		Preload("ScheduleItems").
		Order("loans.end_date ASC").
		Find(&loans).Error
	return loans, err
}

// FindOpenWithoutSchedule returns open loans that have no schedule rows,
// used by the backfill job
func (r *loanRepository) FindOpenWithoutSchedule(ctx context.Context) ([]models.Loan, error) {
	var loans []models.Loan
	err := r.db.WithContext(ctx).
		Where("loans.status IN ?", []string{models.LoanStatusActive, models.LoanStatusDefaulted}).
		Where("NOT EXISTS (SELECT 1 FROM repayment_schedule_items WHERE repayment_schedule_items.loan_id = loans.id)").
		Find(&loans).Error
	return loans, err
}

// LoanStats holds the count of loans by status
type LoanStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Defaulted int64 `json:"defaulted"`
}

func (r *loanRepository) GetStats(ctx context.Context) (*LoanStats, error) {
	stats := &LoanStats{}

	rows, err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Select("status, count(*) as count").
		Group("status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		total += count
		switch status {
		case models.LoanStatusPendingApproval:
			stats.Pending = count
		case models.LoanStatusActive:
			stats.Active = count
		case models.LoanStatusCompleted:
			stats.Completed = count
		case models.LoanStatusDefaulted:
			stats.Defaulted = count
		}
	}
	stats.Total = total

	return stats, nil
}

func (r *loanRepository) HasOpenLoans(ctx context.Context, memberID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("union_member_id = ?", memberID).
		Where("status IN ?", []string{
			models.LoanStatusPendingApproval,
			models.LoanStatusApproved,
			models.LoanStatusActive,
			models.LoanStatusDefaulted,
		}).
		Count(&count).Error
	return count > 0, err
}

func (r *loanRepository) HasOpenLoansForUnion(ctx context.Context, unionID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("union_id = ?", unionID).
		Where("status IN ?", []string{
			models.LoanStatusPendingApproval,
			models.LoanStatusApproved,
			models.LoanStatusActive,
			models.LoanStatusDefaulted,
		}).
		Count(&count).Error
	return count > 0, err
}

// SumPaidByLoanIDs aggregates paid amounts from schedule items per loan
func (r *loanRepository) SumPaidByLoanIDs(ctx context.Context, loanIDs []uint) (map[uint]float64, error) {
	result := make(map[uint]float64)
	if len(loanIDs) == 0 {
		return result, nil
	}

	type row struct {
		LoanID uint
		Total  float64
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&models.RepaymentScheduleItem{}).
		Select("loan_id, COALESCE(SUM(paid_amount), 0) as total").
		Where("loan_id IN ?", loanIDs).
		Group("loan_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, res := range rows {
		result[res.LoanID] = res.Total
	}
	return result, nil
}

// LoanTypeRepository defines the interface for loan product data access
type LoanTypeRepository interface {
	FindByID(ctx context.Context, id uint) (*models.LoanType, error)
	Create(ctx context.Context, loanType *models.LoanType) error
	Update(ctx context.Context, loanType *models.LoanType) error
	SoftDelete(ctx context.Context, id uint) error
	FindAll(ctx context.Context) ([]models.LoanType, error)
	FindActive(ctx context.Context) ([]models.LoanType, error)
}

type loanTypeRepository struct {
	db *gorm.DB
}

// NewLoanTypeRepository creates a new loan type repository
func NewLoanTypeRepository(db *gorm.DB) LoanTypeRepository {
	return &loanTypeRepository{db: db}
}

func (r *loanTypeRepository) FindByID(ctx context.Context, id uint) (*models.LoanType, error) {
	var loanType models.LoanType
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		First(&loanType, id).Error
	if err != nil {
		return nil, err
	}
	return &loanType, nil
}

func (r *loanTypeRepository) Create(ctx context.Context, loanType *models.LoanType) error {
	return r.db.WithContext(ctx).Create(loanType).Error
}

func (r *loanTypeRepository) Update(ctx context.Context, loanType *models.LoanType) error {
	return r.db.WithContext(ctx).Save(loanType).Error
}

func (r *loanTypeRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.LoanType{}).
		Where("id = ?", id).
		Update("deleted_at", gorm.Expr("NOW()")).Error
}

func (r *loanTypeRepository) FindAll(ctx context.Context) ([]models.LoanType, error) {
	var loanTypes []models.LoanType
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("name ASC").
		Find(&loanTypes).Error
	return loanTypes, err
}

func (r *loanTypeRepository) FindActive(ctx context.Context) ([]models.LoanType, error) {
	var loanTypes []models.LoanType
	err := r.db.WithContext(ctx).
		Where("active = ? AND deleted_at IS NULL", true).
		Order("name ASC").
		Find(&loanTypes).Error
	return loanTypes, err
}
