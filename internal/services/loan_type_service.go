package services

import (
	"context"
	"fmt"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
)

type LoanTypeService struct {
	repo     repository.LoanTypeRepository
	auditSvc *AuditService
}

func NewLoanTypeService(repo repository.LoanTypeRepository, auditSvc *AuditService) *LoanTypeService {
	return &LoanTypeService{repo: repo, auditSvc: auditSvc}
}

func (s *LoanTypeService) FindByID(ctx context.Context, id uint) (*models.LoanType, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *LoanTypeService) FindAll(ctx context.Context) ([]models.LoanType, error) {
	return s.repo.FindAll(ctx)
}

func (s *LoanTypeService) FindActive(ctx context.Context) ([]models.LoanType, error) {
	return s.repo.FindActive(ctx)
}

func (s *LoanTypeService) Create(ctx context.Context, loanType *models.LoanType, actorID uint) error {
	if loanType.MinAmount < 0 || (loanType.MaxAmount > 0 && loanType.MaxAmount < loanType.MinAmount) {
		return ErrAmountOutOfRange
	}
	if err := s.repo.Create(ctx, loanType); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "CREATE", "LoanType", loanType.ID, fmt.Sprintf("Loan type created: %s", loanType.Name), "", "")
}

func (s *LoanTypeService) Update(ctx context.Context, loanType *models.LoanType, actorID uint) error {
	if loanType.MinAmount < 0 || (loanType.MaxAmount > 0 && loanType.MaxAmount < loanType.MinAmount) {
		return ErrAmountOutOfRange
	}
	if err := s.repo.Update(ctx, loanType); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "UPDATE", "LoanType", loanType.ID, fmt.Sprintf("Loan type updated: %s", loanType.Name), "", "")
}

func (s *LoanTypeService) Delete(ctx context.Context, id uint, actorID uint) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "DELETE", "LoanType", id, "Loan type deleted (soft delete)", "", "")
}
