package models

import (
	"time"
)

// LoanType defines a product a loan can be issued under, with the amount
// range the product allows
type LoanType struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"uniqueIndex;not null" json:"name"`
	MinAmount float64    `gorm:"type:decimal(15,2);not null" json:"min_amount"`
	MaxAmount float64    `gorm:"type:decimal(15,2);not null" json:"max_amount"`
	Active    bool       `gorm:"default:true" json:"active"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for LoanType
func (LoanType) TableName() string {
	return "loan_types"
}

// AllowsAmount returns true if the amount falls inside the product range
func (t *LoanType) AllowsAmount(amount float64) bool {
	return amount >= t.MinAmount && amount <= t.MaxAmount
}

// Loan represents a loan issued to a union member
type Loan struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	LoanNumber             string     `gorm:"uniqueIndex;not null" json:"loan_number"`
	UnionID                uint       `gorm:"not null;index" json:"union_id"`
	UnionMemberID          uint       `gorm:"not null;index" json:"union_member_id"`
	LoanTypeID             uint       `gorm:"not null;index" json:"loan_type_id"`
	CreatedByID            *uint      `gorm:"index" json:"created_by_id"`
	ApprovedByID           *uint      `gorm:"index" json:"approved_by_id"`
	PrincipalAmount        float64    `gorm:"type:decimal(15,2);not null" json:"principal_amount"`
	TermCount              int        `gorm:"not null" json:"term_count"`
	TermUnit               string     `gorm:"not null" json:"term_unit"`
	StartDate              *time.Time `gorm:"type:date" json:"start_date"`
	EndDate                *time.Time `gorm:"type:date;index" json:"end_date"`
	ProcessingFeeAmount    float64    `gorm:"type:decimal(15,2);default:0" json:"processing_fee_amount"`
	PenaltyFeePerDayAmount float64    `gorm:"type:decimal(15,2);default:0" json:"penalty_fee_per_day_amount"`
	Status                 string     `gorm:"default:DRAFT;index" json:"status"`
	ApprovedAt             *time.Time `json:"approved_at"`
	DisbursedAt            *time.Time `json:"disbursed_at"`
	ClosedAt               *time.Time `json:"closed_at"`
	Notes                  *string    `gorm:"type:text" json:"notes"`
	CreatedAt              time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`

	// TotalPaid is populated by list queries via aggregation, not a column
	TotalPaid float64 `gorm:"-" json:"-"`

	// Associations
	Union         Union                   `gorm:"foreignKey:UnionID" json:"union,omitempty"`
	UnionMember   UnionMember             `gorm:"foreignKey:UnionMemberID" json:"union_member,omitempty"`
	LoanType      LoanType                `gorm:"foreignKey:LoanTypeID" json:"loan_type,omitempty"`
	CreatedBy     *User                   `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	ApprovedBy    *User                   `gorm:"foreignKey:ApprovedByID" json:"approved_by,omitempty"`
	ScheduleItems []RepaymentScheduleItem `gorm:"foreignKey:LoanID" json:"schedule_items,omitempty"`
	Repayments    []Repayment             `gorm:"foreignKey:LoanID" json:"repayments,omitempty"`
}

// TableName specifies the table name for Loan
func (Loan) TableName() string {
	return "loans"
}

// Loan status constants
const (
	LoanStatusDraft           = "DRAFT"
	LoanStatusPendingApproval = "PENDING_APPROVAL"
	LoanStatusApproved        = "APPROVED"
	LoanStatusActive          = "ACTIVE"
	LoanStatusCompleted       = "COMPLETED"
	LoanStatusDefaulted       = "DEFAULTED"
	LoanStatusCancelled       = "CANCELLED"
)

// Term unit constants
const (
	TermUnitDay   = "DAY"
	TermUnitWeek  = "WEEK"
	TermUnitMonth = "MONTH"
)

// MaySubmit returns true if the loan can be sent for approval
func (l *Loan) MaySubmit() bool {
	return l.Status == LoanStatusDraft
}

// MayApprove returns true if the loan can be approved
func (l *Loan) MayApprove() bool {
	return l.Status == LoanStatusPendingApproval
}

// MayDisburse returns true if the loan can be activated
func (l *Loan) MayDisburse() bool {
	return l.Status == LoanStatusApproved
}

// MayComplete returns true if the loan can be closed as fully repaid
func (l *Loan) MayComplete() bool {
	return l.Status == LoanStatusActive || l.Status == LoanStatusDefaulted
}

// MayDefault returns true if the loan can be marked defaulted
func (l *Loan) MayDefault() bool {
	return l.Status == LoanStatusActive
}

// MayCancel returns true if the loan can be cancelled
func (l *Loan) MayCancel() bool {
	return l.Status == LoanStatusDraft ||
		l.Status == LoanStatusPendingApproval ||
		l.Status == LoanStatusApproved
}

// AcceptsRepayments returns true while payments may be recorded against
// the loan
func (l *Loan) AcceptsRepayments() bool {
	return l.Status == LoanStatusActive || l.Status == LoanStatusDefaulted
}

// SumPaidFromSchedule sums the paid amounts across loaded schedule items
func (l *Loan) SumPaidFromSchedule() float64 {
	var total float64
	for _, item := range l.ScheduleItems {
		total += item.PaidAmount
	}
	return total
}

// LoanResponse is the JSON response format for loans
type LoanResponse struct {
	ID                     uint       `json:"id"`
	LoanNumber             string     `json:"loan_number"`
	UnionID                uint       `json:"union_id"`
	UnionName              string     `json:"union_name,omitempty"`
	UnionMemberID          uint       `json:"union_member_id"`
	MemberName             string     `json:"member_name,omitempty"`
	MemberCode             string     `json:"member_code,omitempty"`
	LoanTypeID             uint       `json:"loan_type_id"`
	LoanTypeName           string     `json:"loan_type_name,omitempty"`
	PrincipalAmount        float64    `json:"principal_amount"`
	TermCount              int        `json:"term_count"`
	TermUnit               string     `json:"term_unit"`
	StartDate              *time.Time `json:"start_date"`
	EndDate                *time.Time `json:"end_date"`
	ProcessingFeeAmount    float64    `json:"processing_fee_amount"`
	PenaltyFeePerDayAmount float64    `json:"penalty_fee_per_day_amount"`
	Status                 string     `json:"status"`
	TotalPaid              float64    `json:"total_paid"`
	TotalOutstanding       float64    `json:"total_outstanding"`
	CreatedByName          string     `json:"created_by_name,omitempty"`
	ApprovedByName         string     `json:"approved_by_name,omitempty"`
	ApprovedAt             *time.Time `json:"approved_at"`
	DisbursedAt            *time.Time `json:"disbursed_at"`
	ClosedAt               *time.Time `json:"closed_at"`
	Notes                  *string    `json:"notes"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`

	Schedule   []RepaymentScheduleItemResponse `json:"schedule,omitempty"`
	Repayments []RepaymentResponse             `json:"repayments,omitempty"`
}

// ToResponse converts Loan to LoanResponse
func (l *Loan) ToResponse() LoanResponse {
	resp := LoanResponse{
		ID:                     l.ID,
		LoanNumber:             l.LoanNumber,
		UnionID:                l.UnionID,
		UnionMemberID:          l.UnionMemberID,
		LoanTypeID:             l.LoanTypeID,
		PrincipalAmount:        l.PrincipalAmount,
		TermCount:              l.TermCount,
		TermUnit:               l.TermUnit,
		StartDate:              l.StartDate,
		EndDate:                l.EndDate,
		ProcessingFeeAmount:    l.ProcessingFeeAmount,
		PenaltyFeePerDayAmount: l.PenaltyFeePerDayAmount,
		Status:                 l.Status,
		ApprovedAt:             l.ApprovedAt,
		DisbursedAt:            l.DisbursedAt,
		ClosedAt:               l.ClosedAt,
		Notes:                  l.Notes,
		CreatedAt:              l.CreatedAt,
		UpdatedAt:              l.UpdatedAt,
	}

	if l.Union.ID != 0 {
		resp.UnionName = l.Union.Name
	}
	if l.UnionMember.ID != 0 {
		resp.MemberName = l.UnionMember.FullName()
		resp.MemberCode = l.UnionMember.Code
	}
	if l.LoanType.ID != 0 {
		resp.LoanTypeName = l.LoanType.Name
	}
	if l.CreatedBy != nil {
		resp.CreatedByName = l.CreatedBy.FullName()
	}
	if l.ApprovedBy != nil {
		resp.ApprovedByName = l.ApprovedBy.FullName()
	}

	paid := l.TotalPaid
	if len(l.ScheduleItems) > 0 {
		paid = l.SumPaidFromSchedule()
	}
	resp.TotalPaid = paid
	outstanding := l.PrincipalAmount - paid
	if outstanding < 0 {
		outstanding = 0
	}
	resp.TotalOutstanding = outstanding

	for _, item := range l.ScheduleItems {
		resp.Schedule = append(resp.Schedule, item.ToResponse())
	}
	for _, r := range l.Repayments {
		resp.Repayments = append(resp.Repayments, r.ToResponse())
	}

	return resp
}
