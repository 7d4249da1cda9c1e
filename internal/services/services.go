package services

import (
	"github.com/Tee-David/Millenium-Potters-sub001/internal/cache"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/config"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/jobs"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/storage"
)

// Services holds all service instances
type Services struct {
	Auth           *AuthService
	User           *UserService
	Union          *UnionService
	UnionMember    *UnionMemberService
	MemberDocument *MemberDocumentService
	LoanType       *LoanTypeService
	Loan           *LoanService
	Repayment      *RepaymentService
	Metrics        *MetricsService
	Notification   *NotificationService
	Audit          *AuditService
	Email          *EmailService
	Export         *ExportService
	Job            *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, c cache.Cache, store *storage.LocalStorage, cfg *config.Config) *Services {
	notificationSvc := NewNotificationService(repos.Notification, repos.User)
	emailSvc := NewEmailService(cfg)
	auditSvc := NewAuditService(repos.AuditLog)
	metricsSvc := NewMetricsService(repos.Loan, repos.ScheduleItem, c)
	jobSvc := NewJobService(worker)

	loanSvc := NewLoanService(repos.Loan, repos.LoanType, repos.UnionMember, repos.ScheduleItem,
		metricsSvc, notificationSvc, emailSvc, auditSvc, worker)

	return &Services{
		Auth:           NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:           NewUserService(repos.User, worker, emailSvc, auditSvc),
		Union:          NewUnionService(repos.Union, repos.Loan, auditSvc),
		UnionMember:    NewUnionMemberService(repos.UnionMember, repos.Union, auditSvc),
		MemberDocument: NewMemberDocumentService(repos.MemberDocument, repos.UnionMember, store, auditSvc),
		LoanType:       NewLoanTypeService(repos.LoanType, auditSvc),
		Loan:           loanSvc,
		Repayment:      NewRepaymentService(repos.Repayment, repos.Loan, repos.ScheduleItem, metricsSvc, loanSvc, notificationSvc, auditSvc, worker),
		Metrics:        metricsSvc,
		Notification:   notificationSvc,
		Audit:          auditSvc,
		Email:          emailSvc,
		Export:         NewExportService(repos.Loan, repos.Repayment, metricsSvc, store),
		Job:            jobSvc,
	}
}
