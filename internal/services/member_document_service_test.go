package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/repository"
	"github.com/Tee-David/Millenium-Potters-sub001/internal/storage"
)

// Mock MemberDocumentRepository
type mockMemberDocumentRepository struct {
	repository.MemberDocumentRepository
	mockCreate       func(ctx context.Context, doc *models.MemberDocument) error
	mockFindByID     func(ctx context.Context, id uint) (*models.MemberDocument, error)
	mockFindByMember func(ctx context.Context, memberID uint) ([]models.MemberDocument, error)
	mockDelete       func(ctx context.Context, id uint) error
}

func (m *mockMemberDocumentRepository) Create(ctx context.Context, doc *models.MemberDocument) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, doc)
	}
	doc.ID = 1
	return nil
}

func (m *mockMemberDocumentRepository) FindByID(ctx context.Context, id uint) (*models.MemberDocument, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, ErrNotFound
}

func (m *mockMemberDocumentRepository) FindByMember(ctx context.Context, memberID uint) ([]models.MemberDocument, error) {
	if m.mockFindByMember != nil {
		return m.mockFindByMember(ctx, memberID)
	}
	return nil, nil
}

func (m *mockMemberDocumentRepository) Delete(ctx context.Context, id uint) error {
	if m.mockDelete != nil {
		return m.mockDelete(ctx, id)
	}
	return nil
}

type memberDocumentFixture struct {
	svc        *MemberDocumentService
	repo       *mockMemberDocumentRepository
	memberRepo *mockUnionMemberRepository
	store      *storage.LocalStorage
}

func newMemberDocumentFixture(t *testing.T) *memberDocumentFixture {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	repo := &mockMemberDocumentRepository{}
	memberRepo := &mockUnionMemberRepository{}
	memberRepo.mockFindByID = func(ctx context.Context, id uint) (*models.UnionMember, error) {
		return &models.UnionMember{ID: id, UnionID: 1, Code: "MB-TEST0001", FirstName: "Ada", LastName: "Obi"}, nil
	}

	auditSvc := NewAuditService(&mockAuditLogRepository{})
	svc := NewMemberDocumentService(repo, memberRepo, store, auditSvc)

	return &memberDocumentFixture{
		svc:        svc,
		repo:       repo,
		memberRepo: memberRepo,
		store:      store,
	}
}

func TestMemberDocumentService_Upload(t *testing.T) {
	f := newMemberDocumentFixture(t)

	var created *models.MemberDocument
	f.repo.mockCreate = func(ctx context.Context, doc *models.MemberDocument) error {
		doc.ID = 42
		created = doc
		return nil
	}

	data := []byte("%PDF-1.4 national id scan")
	doc, err := f.svc.Upload(context.Background(), 3, "national-id.pdf", "application/pdf", data, 7)
	require.NoError(t, err)

	assert.Equal(t, uint(42), doc.ID)
	assert.Equal(t, uint(3), doc.UnionMemberID)
	assert.Equal(t, "national-id.pdf", doc.FileName)
	assert.Equal(t, int64(len(data)), doc.SizeBytes)
	require.NotNil(t, doc.UploadedByID)
	assert.Equal(t, uint(7), *doc.UploadedByID)

	// The blob lands in storage under the generated path
	require.NotNil(t, created)
	stored, err := f.store.Read(created.Path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, stored))
}

func TestMemberDocumentService_Upload_RejectsUnsupportedExtension(t *testing.T) {
	f := newMemberDocumentFixture(t)

	_, err := f.svc.Upload(context.Background(), 3, "malware.exe", "application/octet-stream", []byte("MZ"), 7)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)

	_, err = f.svc.Upload(context.Background(), 3, "noextension", "text/plain", []byte("x"), 7)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestMemberDocumentService_Upload_RejectsOversizedFile(t *testing.T) {
	f := newMemberDocumentFixture(t)

	big := make([]byte, maxDocumentSize+1)
	_, err := f.svc.Upload(context.Background(), 3, "scan.jpg", "image/jpeg", big, 7)
	assert.ErrorIs(t, err, ErrDocumentTooLarge)
}

func TestMemberDocumentService_Upload_UnknownMember(t *testing.T) {
	f := newMemberDocumentFixture(t)

	f.memberRepo.mockFindByID = nil // default errors

	_, err := f.svc.Upload(context.Background(), 99, "scan.jpg", "image/jpeg", []byte("x"), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemberDocumentService_Delete_RemovesBlob(t *testing.T) {
	f := newMemberDocumentFixture(t)

	require.NoError(t, f.store.Write("members/3/doc.pdf", []byte("payload")))

	f.repo.mockFindByID = func(ctx context.Context, id uint) (*models.MemberDocument, error) {
		return &models.MemberDocument{ID: id, UnionMemberID: 3, FileName: "doc.pdf", Path: "members/3/doc.pdf"}, nil
	}

	err := f.svc.Delete(context.Background(), 5, 7)
	require.NoError(t, err)
	assert.False(t, f.store.Exists("members/3/doc.pdf"))
}

func TestMemberDocumentService_Download(t *testing.T) {
	f := newMemberDocumentFixture(t)

	require.NoError(t, f.store.Write("members/3/photo.png", []byte("png bytes")))

	f.repo.mockFindByID = func(ctx context.Context, id uint) (*models.MemberDocument, error) {
		return &models.MemberDocument{ID: id, UnionMemberID: 3, FileName: "photo.png", ContentType: "image/png", Path: "members/3/photo.png"}, nil
	}

	doc, data, err := f.svc.Download(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, "photo.png", doc.FileName)
	assert.Equal(t, []byte("png bytes"), data)
}
