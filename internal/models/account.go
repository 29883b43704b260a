package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role identifies the capability level of an account.
type Role string

// Supported account roles.
const (
	RoleStudent   Role = "student"
	RoleHOD       Role = "hod"
	RoleAdmin     Role = "admin"
	RolePrincipal Role = "principal"
)

// Roles returns every known role.
func Roles() []Role {
	return []Role{RoleStudent, RoleHOD, RoleAdmin, RolePrincipal}
}

// ParseRole normalises the raw value and reports whether it names a known role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Valid reports whether the role is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleHOD, RoleAdmin, RolePrincipal:
		return true
	default:
		return false
	}
}

// Branches lists the departments accounts may belong to.
var Branches = []string{
	"Computer Science",
	"Information Technology",
	"Electronics",
	"Mechanical",
	"Civil",
	"Electrical",
	"Chemical",
	"Other",
}

// ValidBranch reports whether name is one of Branches, compared exactly.
func ValidBranch(name string) bool {
	for _, branch := range Branches {
		if branch == name {
			return true
		}
	}
	return false
}

// User is the identity provider record holding credentials.
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Profile carries the display attributes of an identity.
type Profile struct {
	UserID    string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Branch    string    `gorm:"size:128;index;not null" json:"branch"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRole binds exactly one role to an identity.
type UserRole struct {
	UserID    string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	Role      Role      `gorm:"size:16;index;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshSession stores the hash of an issued refresh token.
type RefreshSession struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (s *RefreshSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Identity is the merged view of a signed-in account used for authorization.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Branch string `json:"branch"`
	Role   Role   `json:"role"`
}
