package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a staff account (admin, supervisor or credit officer)
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Email              string     `gorm:"uniqueIndex;not null" json:"email"`
	EncryptedPassword  string     `gorm:"column:encrypted_password;not null" json:"-"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	Phone              string     `json:"phone"`
	Role               string     `gorm:"default:credit_officer;index" json:"role"`
	Status             string     `gorm:"default:active" json:"status"`
	RecoveryCode       *string    `json:"-"`
	RecoveryCodeSentAt *time.Time `json:"-"`
	LastLoginAt        *time.Time `json:"last_login_at"`
	DeletedAt          *time.Time `gorm:"index" json:"-"`
	CreatedBy          *uint      `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Associations
	Creator       *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Unions        []Union        `gorm:"foreignKey:CreditOfficerID" json:"unions,omitempty"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"notifications,omitempty"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook for setting defaults
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleCreditOfficer
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	return nil
}

// FullName returns the display name for the user
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin returns true if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsSupervisor returns true if user has supervisor role
func (u *User) IsSupervisor() bool {
	return u.Role == RoleSupervisor
}

// IsActive returns true if user status is active and not soft-deleted
func (u *User) IsActive() bool {
	return u.Status == StatusActive && u.DeletedAt == nil
}

// IsDeleted returns true if user is soft-deleted
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// Role constants
const (
	RoleAdmin         = "admin"
	RoleSupervisor    = "supervisor"
	RoleCreditOfficer = "credit_officer"
)

// Status constants
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// UserResponse is the JSON response format for users
type UserResponse struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	FullName    string     `json:"full_name"`
	Phone       string     `json:"phone"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		Phone:       u.Phone,
		Role:        u.Role,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
