package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Tee-David/Millenium-Potters-sub001/internal/models"
)

// UnionRepository defines the interface for union data access
type UnionRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Union, error)
	FindByCode(ctx context.Context, code string) (*models.Union, error)
	Create(ctx context.Context, union *models.Union) error
	Update(ctx context.Context, union *models.Union) error
	SoftDelete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.Union, int64, error)
	FindByCreditOfficer(ctx context.Context, officerID uint) ([]models.Union, error)
}

type unionRepository struct {
	db *gorm.DB
}

// NewUnionRepository creates a new union repository
func NewUnionRepository(db *gorm.DB) UnionRepository {
	return &unionRepository{db: db}
}

func (r *unionRepository) FindByID(ctx context.Context, id uint) (*models.Union, error) {
	var union models.Union
	err := r.db.WithContext(ctx).
		Preload("CreditOfficer").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Where("deleted_at IS NULL").Order("last_name ASC")
		}).
		Where("deleted_at IS NULL").
		First(&union, id).Error
	if err != nil {
		return nil, err
	}
	return &union, nil
}

func (r *unionRepository) FindByCode(ctx context.Context, code string) (*models.Union, error) {
	var union models.Union
	err := r.db.WithContext(ctx).
		Where("code = ? AND deleted_at IS NULL", code).
		First(&union).Error
	if err != nil {
		return nil, err
	}
	return &union, nil
}

func (r *unionRepository) Create(ctx context.Context, union *models.Union) error {
	return r.db.WithContext(ctx).Create(union).Error
}

func (r *unionRepository) Update(ctx context.Context, union *models.Union) error {
	return r.db.WithContext(ctx).Save(union).Error
}

func (r *unionRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Union{}).
		Where("id = ?", id).
		Update("deleted_at", gorm.Expr("NOW()")).Error
}

func (r *unionRepository) List(ctx context.Context, query *ListQuery) ([]models.Union, int64, error) {
	var unions []models.Union
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Union{}).Where("unions.deleted_at IS NULL")

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("unions.name ILIKE ? OR unions.code ILIKE ?", search, search)
	}

	if query.Filters["credit_officer_id"] != "" {
		db = db.Where("unions.credit_officer_id = ?", query.Filters["credit_officer_id"])
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("unions.name ASC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Preload("CreditOfficer").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Where("deleted_at IS NULL")
		}).
		Find(&unions).Error
	return unions, total, err
}

func (r *unionRepository) FindByCreditOfficer(ctx context.Context, officerID uint) ([]models.Union, error) {
	var unions []models.Union
	err := r.db.WithContext(ctx).
		Where("credit_officer_id = ? AND deleted_at IS NULL", officerID).
		Order("name ASC").
		Find(&unions).Error
	return unions, err
}

// UnionMemberRepository defines the interface for union member data access
type UnionMemberRepository interface {
	FindByID(ctx context.Context, id uint) (*models.UnionMember, error)
	FindByCode(ctx context.Context, code string) (*models.UnionMember, error)
	FindByUnion(ctx context.Context, unionID uint) ([]models.UnionMember, error)
	Create(ctx context.Context, member *models.UnionMember) error
	Update(ctx context.Context, member *models.UnionMember) error
	SoftDelete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.UnionMember, int64, error)
}

type unionMemberRepository struct {
	db *gorm.DB
}

// NewUnionMemberRepository creates a new union member repository
func NewUnionMemberRepository(db *gorm.DB) UnionMemberRepository {
	return &unionMemberRepository{db: db}
}

func (r *unionMemberRepository) FindByID(ctx context.Context, id uint) (*models.UnionMember, error) {
	var member models.UnionMember
	err := r.db.WithContext(ctx).
		Preload("Union").
		Where("deleted_at IS NULL").
		First(&member, id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *unionMemberRepository) FindByCode(ctx context.Context, code string) (*models.UnionMember, error) {
	var member models.UnionMember
	err := r.db.WithContext(ctx).
		Preload("Union").
		Where("code = ? AND deleted_at IS NULL", code).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *unionMemberRepository) FindByUnion(ctx context.Context, unionID uint) ([]models.UnionMember, error) {
	var members []models.UnionMember
	err := r.db.WithContext(ctx).
		Where("union_id = ? AND deleted_at IS NULL", unionID).
		Order("last_name ASC").
		Find(&members).Error
	return members, err
}

func (r *unionMemberRepository) Create(ctx context.Context, member *models.UnionMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *unionMemberRepository) Update(ctx context.Context, member *models.UnionMember) error {
	return r.db.WithContext(ctx).Save(member).Error
}

func (r *unionMemberRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.UnionMember{}).
		Where("id = ?", id).
		Update("deleted_at", gorm.Expr("NOW()")).Error
}

func (r *unionMemberRepository) List(ctx context.Context, query *ListQuery) ([]models.UnionMember, int64, error) {
	var members []models.UnionMember
	var total int64

	db := r.db.WithContext(ctx).Model(&models.UnionMember{}).Where("union_members.deleted_at IS NULL")

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("union_members.first_name ILIKE ? OR union_members.last_name ILIKE ? OR union_members.code ILIKE ? OR union_members.phone ILIKE ?",
			search, search, search, search)
	}

	if query.Filters["union_id"] != "" {
		db = db.Where("union_members.union_id = ?", query.Filters["union_id"])
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("union_members.created_at DESC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Preload("Union").Find(&members).Error
	return members, total, err
}

// MemberDocumentRepository defines the interface for member document metadata
type MemberDocumentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.MemberDocument, error)
	FindByMember(ctx context.Context, memberID uint) ([]models.MemberDocument, error)
	Create(ctx context.Context, doc *models.MemberDocument) error
	Delete(ctx context.Context, id uint) error
}

type memberDocumentRepository struct {
	db *gorm.DB
}

// NewMemberDocumentRepository creates a new member document repository
func NewMemberDocumentRepository(db *gorm.DB) MemberDocumentRepository {
	return &memberDocumentRepository{db: db}
}

func (r *memberDocumentRepository) FindByID(ctx context.Context, id uint) (*models.MemberDocument, error) {
	var doc models.MemberDocument
	err := r.db.WithContext(ctx).
		Preload("UploadedBy").
		First(&doc, id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *memberDocumentRepository) FindByMember(ctx context.Context, memberID uint) ([]models.MemberDocument, error) {
	var docs []models.MemberDocument
	err := r.db.WithContext(ctx).
		Preload("UploadedBy").
		Where("union_member_id = ?", memberID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *memberDocumentRepository) Create(ctx context.Context, doc *models.MemberDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *memberDocumentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.MemberDocument{}, id).Error
}
