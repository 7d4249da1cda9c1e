package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/storage"
	"github.com/Tee-David/Millenium-Potters-sub001/pkg/logger"
)

// maxDocumentSize caps member document uploads at 5MB
const maxDocumentSize = 5 << 20

var allowedDocumentExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// MemberDocumentService stores files kept on record for union members.
// Blobs go to local storage, metadata to the database.
type MemberDocumentService struct {
	repo       repository.MemberDocumentRepository
	memberRepo repository.UnionMemberRepository
	store      *storage.LocalStorage
	auditSvc   *AuditService
}

func NewMemberDocumentService(
	repo repository.MemberDocumentRepository,
	memberRepo repository.UnionMemberRepository,
	store *storage.LocalStorage,
	auditSvc *AuditService,
) *MemberDocumentService {
	return &MemberDocumentService{
		repo:       repo,
		memberRepo: memberRepo,
		store:      store,
		auditSvc:   auditSvc,
	}
}

// Upload validates and stores a document against a member. The stored
// name is generated so two uploads with the same file name never
// collide.
func (s *MemberDocumentService) Upload(ctx context.Context, memberID uint, fileName, contentType string, data []byte, actorID uint) (*models.MemberDocument, error) {
	member, err := s.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, ErrNotFound
	}

	if len(data) > maxDocumentSize {
		return nil, ErrDocumentTooLarge
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedDocumentExtensions[ext] {
		return nil, ErrUnsupportedDocument
	}

	path := fmt.Sprintf("members/%d/%s%s", member.ID, uuid.New().String(), ext)
	if err := s.store.Write(path, data); err != nil {
		return nil, err
	}

	doc := &models.MemberDocument{
		UnionMemberID: member.ID,
		FileName:      fileName,
		ContentType:   contentType,
		Path:          path,
		SizeBytes:     int64(len(data)),
		UploadedByID:  &actorID,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(path); delErr != nil {
			logger.Warn(fmt.Sprintf("[Documents] Failed to remove orphaned blob %s: %v", path, delErr))
		}
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "CREATE", "MemberDocument", doc.ID,
		fmt.Sprintf("Document uploaded for member %s: %s", member.Code, fileName), "", "")

	return doc, nil
}

func (s *MemberDocumentService) FindByMember(ctx context.Context, memberID uint) ([]models.MemberDocument, error) {
	if _, err := s.memberRepo.FindByID(ctx, memberID); err != nil {
		return nil, ErrNotFound
	}
	return s.repo.FindByMember(ctx, memberID)
}

// Download returns the document metadata and its blob
func (s *MemberDocumentService) Download(ctx context.Context, id uint) (*models.MemberDocument, []byte, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	data, err := s.store.Read(doc.Path)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

// Delete removes the metadata row first, then the blob. A blob left
// behind after a failed remove is harmless, a row pointing at a missing
// blob is not.
func (s *MemberDocumentService) Delete(ctx context.Context, id uint, actorID uint) error {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(doc.Path); err != nil {
		logger.Warn(fmt.Sprintf("[Documents] Failed to remove blob %s: %v", doc.Path, err))
	}
	return s.auditSvc.Log(ctx, actorID, "DELETE", "MemberDocument", id,
		fmt.Sprintf("Document deleted: %s", doc.FileName), "", "")
}
