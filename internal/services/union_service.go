package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
)

type UnionService struct {
	repo     repository.UnionRepository
	loanRepo repository.LoanRepository
	auditSvc *AuditService
}

func NewUnionService(repo repository.UnionRepository, loanRepo repository.LoanRepository, auditSvc *AuditService) *UnionService {
	return &UnionService{repo: repo, loanRepo: loanRepo, auditSvc: auditSvc}
}

func (s *UnionService) FindByID(ctx context.Context, id uint) (*models.Union, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UnionService) List(ctx context.Context, query *repository.ListQuery) ([]models.Union, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *UnionService) FindByCreditOfficer(ctx context.Context, officerID uint) ([]models.Union, error) {
	return s.repo.FindByCreditOfficer(ctx, officerID)
}

func (s *UnionService) Create(ctx context.Context, union *models.Union, actorID uint) error {
	if union.Code == "" {
		union.Code = generateCode("UN")
	}
	union.Code = strings.ToUpper(union.Code)

	if existing, err := s.repo.FindByCode(ctx, union.Code); err == nil && existing != nil {
		return ErrDuplicate
	}

	if err := s.repo.Create(ctx, union); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "CREATE", "Union", union.ID, fmt.Sprintf("Union created: %s (%s)", union.Name, union.Code), "", "")
}

func (s *UnionService) Update(ctx context.Context, union *models.Union, actorID uint) error {
	if err := s.repo.Update(ctx, union); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "UPDATE", "Union", union.ID, fmt.Sprintf("Union updated: %s", union.Name), "", "")
}

// Delete soft-deletes a union. Refused while any of its members still
// has an open loan.
func (s *UnionService) Delete(ctx context.Context, id uint, actorID uint) error {
	open, err := s.loanRepo.HasOpenLoansForUnion(ctx, id)
	if err != nil {
		return err
	}
	if open {
		return ErrInvalidState
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "DELETE", "Union", id, "Union deleted (soft delete)", "", "")
}

type UnionMemberService struct {
	repo      repository.UnionMemberRepository
	unionRepo repository.UnionRepository
	auditSvc  *AuditService
}

func NewUnionMemberService(repo repository.UnionMemberRepository, unionRepo repository.UnionRepository, auditSvc *AuditService) *UnionMemberService {
	return &UnionMemberService{repo: repo, unionRepo: unionRepo, auditSvc: auditSvc}
}

func (s *UnionMemberService) FindByID(ctx context.Context, id uint) (*models.UnionMember, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UnionMemberService) FindByUnion(ctx context.Context, unionID uint) ([]models.UnionMember, error) {
	return s.repo.FindByUnion(ctx, unionID)
}

func (s *UnionMemberService) List(ctx context.Context, query *repository.ListQuery) ([]models.UnionMember, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *UnionMemberService) Create(ctx context.Context, member *models.UnionMember, actorID uint) error {
	if _, err := s.unionRepo.FindByID(ctx, member.UnionID); err != nil {
		return ErrNotFound
	}

	if member.Code == "" {
		member.Code = generateCode("MB")
	}
	member.Code = strings.ToUpper(member.Code)

	if existing, err := s.repo.FindByCode(ctx, member.Code); err == nil && existing != nil {
		return ErrDuplicate
	}

	if err := s.repo.Create(ctx, member); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "CREATE", "UnionMember", member.ID, fmt.Sprintf("Member created: %s (%s)", member.FullName(), member.Code), "", "")
}

func (s *UnionMemberService) Update(ctx context.Context, member *models.UnionMember, actorID uint) error {
	existing, err := s.repo.FindByID(ctx, member.ID)
	if err != nil {
		return ErrNotFound
	}

	// Preserve identity fields if not provided
	if member.UnionID == 0 {
		member.UnionID = existing.UnionID
	}
	if member.Code == "" {
		member.Code = existing.Code
	}

	if err := s.repo.Update(ctx, member); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "UPDATE", "UnionMember", member.ID, fmt.Sprintf("Member updated: %s", member.Code), "", "")
}

func (s *UnionMemberService) Delete(ctx context.Context, id uint, actorID uint) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	return s.auditSvc.Log(ctx, actorID, "DELETE", "UnionMember", id, "Member deleted (soft delete)", "", "")
}

// generateCode builds a short unique code like UN-3F2A1B9C
func generateCode(prefix string) string {
	id := uuid.New().String()
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(id[:8]))
}
