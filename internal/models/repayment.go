package models

import (
	"time"
)

// RepaymentScheduleItem is a single installment row in a loan's
// repayment schedule
type RepaymentScheduleItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LoanID     uint      `gorm:"not null;index" json:"loan_id"`
	Sequence   int       `gorm:"not null" json:"sequence"`
	DueDate    time.Time `gorm:"type:date;not null;index" json:"due_date"`
	TotalDue   float64   `gorm:"type:decimal(15,2);not null" json:"total_due"`
	PaidAmount float64   `gorm:"type:decimal(15,2);default:0" json:"paid_amount"`
	Status     string    `gorm:"default:PENDING;index" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Associations
	Loan        Loan                  `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
	Allocations []RepaymentAllocation `gorm:"foreignKey:ScheduleItemID" json:"allocations,omitempty"`
}

// TableName specifies the table name for RepaymentScheduleItem
func (RepaymentScheduleItem) TableName() string {
	return "repayment_schedule_items"
}

// Schedule item status constants
const (
	ScheduleItemStatusPending = "PENDING"
	ScheduleItemStatusPartial = "PARTIAL"
	ScheduleItemStatusPaid    = "PAID"
	ScheduleItemStatusOverdue = "OVERDUE"
)

// Remaining returns the unpaid portion of the installment
func (i *RepaymentScheduleItem) Remaining() float64 {
	remaining := i.TotalDue - i.PaidAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsSettled returns true once the installment is fully covered
func (i *RepaymentScheduleItem) IsSettled() bool {
	return i.PaidAmount >= i.TotalDue
}

// StatusFor derives the item status from paid amount and due date
func (i *RepaymentScheduleItem) StatusFor(now time.Time) string {
	switch {
	case i.IsSettled():
		return ScheduleItemStatusPaid
	case i.PaidAmount > 0:
		return ScheduleItemStatusPartial
	case now.After(i.DueDate):
		return ScheduleItemStatusOverdue
	default:
		return ScheduleItemStatusPending
	}
}

// RepaymentScheduleItemResponse is the JSON response format for schedule items
type RepaymentScheduleItemResponse struct {
	ID         uint      `json:"id"`
	LoanID     uint      `json:"loan_id"`
	Sequence   int       `json:"sequence"`
	DueDate    time.Time `json:"due_date"`
	TotalDue   float64   `json:"total_due"`
	PaidAmount float64   `json:"paid_amount"`
	Remaining  float64   `json:"remaining"`
	Status     string    `json:"status"`
}

// ToResponse converts RepaymentScheduleItem to its response form
func (i *RepaymentScheduleItem) ToResponse() RepaymentScheduleItemResponse {
	return RepaymentScheduleItemResponse{
		ID:         i.ID,
		LoanID:     i.LoanID,
		Sequence:   i.Sequence,
		DueDate:    i.DueDate,
		TotalDue:   i.TotalDue,
		PaidAmount: i.PaidAmount,
		Remaining:  i.Remaining(),
		Status:     i.Status,
	}
}

// Repayment is a payment received against a loan. Its amount is spread
// over schedule items through RepaymentAllocations.
type Repayment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LoanID       uint      `gorm:"not null;index" json:"loan_id"`
	Amount       float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Method       string    `gorm:"default:CASH" json:"method"`
	Reference    *string   `json:"reference"`
	Notes        *string   `gorm:"type:text" json:"notes"`
	ReceivedByID *uint     `gorm:"index" json:"received_by_id"`
	ReceivedAt   time.Time `gorm:"index" json:"received_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Associations
	Loan        Loan                  `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
	ReceivedBy  *User                 `gorm:"foreignKey:ReceivedByID" json:"received_by,omitempty"`
	Allocations []RepaymentAllocation `gorm:"foreignKey:RepaymentID" json:"allocations,omitempty"`
}

// TableName specifies the table name for Repayment
func (Repayment) TableName() string {
	return "repayments"
}

// Repayment method constants
const (
	RepaymentMethodCash     = "CASH"
	RepaymentMethodTransfer = "TRANSFER"
	RepaymentMethodMobile   = "MOBILE_MONEY"
)

// ValidRepaymentMethod reports whether m is one of the known methods
func ValidRepaymentMethod(m string) bool {
	switch m {
	case RepaymentMethodCash, RepaymentMethodTransfer, RepaymentMethodMobile:
		return true
	}
	return false
}

// RepaymentAllocation records how much of a repayment was applied to a
// given schedule item
type RepaymentAllocation struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RepaymentID    uint      `gorm:"not null;index" json:"repayment_id"`
	ScheduleItemID uint      `gorm:"not null;index" json:"schedule_item_id"`
	Amount         float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	CreatedAt      time.Time `json:"created_at"`

	// Associations
	Repayment    Repayment             `gorm:"foreignKey:RepaymentID" json:"repayment,omitempty"`
	ScheduleItem RepaymentScheduleItem `gorm:"foreignKey:ScheduleItemID" json:"schedule_item,omitempty"`
}

// TableName specifies the table name for RepaymentAllocation
func (RepaymentAllocation) TableName() string {
	return "repayment_allocations"
}

// RepaymentResponse is the JSON response format for repayments
type RepaymentResponse struct {
	ID           uint                          `json:"id"`
	LoanID       uint                          `json:"loan_id"`
	LoanNumber   string                        `json:"loan_number,omitempty"`
	MemberName   string                        `json:"member_name,omitempty"`
	Amount       float64                       `json:"amount"`
	Method       string                        `json:"method"`
	Reference    *string                       `json:"reference"`
	Notes        *string                       `json:"notes"`
	ReceivedBy   string                        `json:"received_by,omitempty"`
	ReceivedAt   time.Time                     `json:"received_at"`
	CreatedAt    time.Time                     `json:"created_at"`
	Allocations  []RepaymentAllocationResponse `json:"allocations,omitempty"`
}

// RepaymentAllocationResponse is the JSON response format for allocations
type RepaymentAllocationResponse struct {
	ID             uint    `json:"id"`
	ScheduleItemID uint    `json:"schedule_item_id"`
	Sequence       int     `json:"sequence,omitempty"`
	Amount         float64 `json:"amount"`
}

// ToResponse converts Repayment to RepaymentResponse
func (r *Repayment) ToResponse() RepaymentResponse {
	resp := RepaymentResponse{
		ID:         r.ID,
		LoanID:     r.LoanID,
		Amount:     r.Amount,
		Method:     r.Method,
		Reference:  r.Reference,
		Notes:      r.Notes,
		ReceivedAt: r.ReceivedAt,
		CreatedAt:  r.CreatedAt,
	}

	if r.Loan.ID != 0 {
		resp.LoanNumber = r.Loan.LoanNumber
		if r.Loan.UnionMember.ID != 0 {
			resp.MemberName = r.Loan.UnionMember.FullName()
		}
	}
	if r.ReceivedBy != nil {
		resp.ReceivedBy = r.ReceivedBy.FullName()
	}
	for _, a := range r.Allocations {
		ar := RepaymentAllocationResponse{
			ID:             a.ID,
			ScheduleItemID: a.ScheduleItemID,
			Amount:         a.Amount,
		}
		if a.ScheduleItem.ID != 0 {
			ar.Sequence = a.ScheduleItem.Sequence
		}
		resp.Allocations = append(resp.Allocations, ar)
	}

	return resp
}
