package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User           UserRepository
	Union          UnionRepository
	UnionMember    UnionMemberRepository
	MemberDocument MemberDocumentRepository
	LoanType       LoanTypeRepository
	Loan           LoanRepository
	Repayment      RepaymentRepository
	ScheduleItem   ScheduleItemRepository
	Notification   NotificationRepository
	RefreshToken   RefreshTokenRepository
	AuditLog       AuditLogRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:           NewUserRepository(db),
		Union:          NewUnionRepository(db),
		UnionMember:    NewUnionMemberRepository(db),
		MemberDocument: NewMemberDocumentRepository(db),
		LoanType:       NewLoanTypeRepository(db),
		Loan:           NewLoanRepository(db),
		Repayment:      NewRepaymentRepository(db),
		ScheduleItem:   NewScheduleItemRepository(db),
		Notification:   NewNotificationRepository(db),
		RefreshToken:   NewRefreshTokenRepository(db),
		AuditLog:       NewAuditLogRepository(db),
	}
}
