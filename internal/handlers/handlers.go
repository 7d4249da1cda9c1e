package handlers

import (
	"github.com/Tee-David/Millenium-Potters-sub001/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health         *HealthHandler
	Auth           *AuthHandler
	User           *UserHandler
	Union          *UnionHandler
	UnionMember    *UnionMemberHandler
	MemberDocument *MemberDocumentHandler
	LoanType       *LoanTypeHandler
	Loan           *LoanHandler
	Repayment      *RepaymentHandler
	Notification   *NotificationHandler
	Audit          *AuditHandler
	Job            *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(),
		Auth:           NewAuthHandler(svcs.Auth, svcs.User),
		User:           NewUserHandler(svcs.User),
		Union:          NewUnionHandler(svcs.Union),
		UnionMember:    NewUnionMemberHandler(svcs.UnionMember),
		MemberDocument: NewMemberDocumentHandler(svcs.MemberDocument),
		LoanType:       NewLoanTypeHandler(svcs.LoanType),
		Loan:           NewLoanHandler(svcs.Loan, svcs.Metrics, svcs.Export),
		Repayment:      NewRepaymentHandler(svcs.Repayment, svcs.Metrics, svcs.Export),
		Notification:   NewNotificationHandler(svcs.Notification),
		Audit:          NewAuditHandler(svcs.Audit),
		Job:            NewJobHandler(svcs.Job),
	}
}
