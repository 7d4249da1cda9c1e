package models

import (
	"time"
)

// Union represents a branch-level cooperative that union members belong to.
// Each union is managed by a credit officer.
type Union struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"not null;index" json:"name"`
	Code            string     `gorm:"uniqueIndex;not null" json:"code"`
	Address         *string    `json:"address"`
	CreditOfficerID *uint      `gorm:"index" json:"credit_officer_id"`
	DeletedAt       *time.Time `gorm:"index" json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Associations
	CreditOfficer *User         `gorm:"foreignKey:CreditOfficerID" json:"credit_officer,omitempty"`
	Members       []UnionMember `gorm:"foreignKey:UnionID" json:"members,omitempty"`
	Loans         []Loan        `gorm:"foreignKey:UnionID" json:"loans,omitempty"`
}

// TableName specifies the table name for Union
func (Union) TableName() string {
	return "unions"
}

// UnionMember represents a customer: a member of a union who can take loans
type UnionMember struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UnionID   uint       `gorm:"not null;index" json:"union_id"`
	Code      string     `gorm:"uniqueIndex;not null" json:"code"`
	FirstName string     `gorm:"not null" json:"first_name"`
	LastName  string     `gorm:"not null" json:"last_name"`
	Phone     *string    `json:"phone"`
	Address   *string    `json:"address"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Associations
	Union Union  `gorm:"foreignKey:UnionID" json:"union,omitempty"`
	Loans []Loan `gorm:"foreignKey:UnionMemberID" json:"loans,omitempty"`
}

// TableName specifies the table name for UnionMember
func (UnionMember) TableName() string {
	return "union_members"
}

// FullName returns the member's display name
func (m *UnionMember) FullName() string {
	if m.FirstName == "" {
		return m.LastName
	}
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// UnionMemberResponse is the JSON response format for union members
type UnionMemberResponse struct {
	ID        uint      `json:"id"`
	UnionID   uint      `json:"union_id"`
	UnionName string    `json:"union_name,omitempty"`
	Code      string    `json:"code"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Phone     *string   `json:"phone"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts UnionMember to UnionMemberResponse
func (m *UnionMember) ToResponse() UnionMemberResponse {
	resp := UnionMemberResponse{
		ID:        m.ID,
		UnionID:   m.UnionID,
		Code:      m.Code,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		FullName:  m.FullName(),
		Phone:     m.Phone,
		Address:   m.Address,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Union.ID != 0 {
		resp.UnionName = m.Union.Name
	}
	return resp
}

// MemberDocument is a file kept on record for a union member (ID card,
// passport photo, signed loan form). The blob lives in local storage;
// the row only tracks where it is.
type MemberDocument struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UnionMemberID uint      `gorm:"not null;index" json:"union_member_id"`
	FileName      string    `gorm:"not null" json:"file_name"`
	ContentType   string    `gorm:"not null" json:"content_type"`
	Path          string    `gorm:"not null" json:"-"`
	SizeBytes     int64     `gorm:"not null" json:"size_bytes"`
	UploadedByID  *uint     `gorm:"index" json:"uploaded_by_id"`
	CreatedAt     time.Time `json:"created_at"`

	// Associations
	UnionMember UnionMember `gorm:"foreignKey:UnionMemberID" json:"member,omitempty"`
	UploadedBy  *User       `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
}

// TableName specifies the table name for MemberDocument
func (MemberDocument) TableName() string {
	return "member_documents"
}

// MemberDocumentResponse is the JSON response format for member documents
type MemberDocumentResponse struct {
	ID            uint      `json:"id"`
	UnionMemberID uint      `json:"union_member_id"`
	FileName      string    `json:"file_name"`
	ContentType   string    `json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	UploadedBy    string    `json:"uploaded_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToResponse converts MemberDocument to MemberDocumentResponse
func (d *MemberDocument) ToResponse() MemberDocumentResponse {
	resp := MemberDocumentResponse{
		ID:            d.ID,
		UnionMemberID: d.UnionMemberID,
		FileName:      d.FileName,
		ContentType:   d.ContentType,
		SizeBytes:     d.SizeBytes,
		CreatedAt:     d.CreatedAt,
	}
	if d.UploadedBy != nil {
		resp.UploadedBy = d.UploadedBy.FullName()
	}
	return resp
}

// UnionResponse is the JSON response format for unions
type UnionResponse struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	Address       *string   `json:"address"`
	CreditOfficer string    `json:"credit_officer,omitempty"`
	MemberCount   int       `json:"member_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToResponse converts Union to UnionResponse
func (u *Union) ToResponse() UnionResponse {
	resp := UnionResponse{
		ID:          u.ID,
		Name:        u.Name,
		Code:        u.Code,
		Address:     u.Address,
		MemberCount: len(u.Members),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.CreditOfficer != nil {
		resp.CreditOfficer = u.CreditOfficer.FullName()
	}
	return resp
}
