package access

import (
	"errors"
	"fmt"
	"net/url"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// ErrUnknownRole is returned when an identity carries a role outside the supported set.
var ErrUnknownRole = errors.New("unknown role")

// ScopeKind names the visibility rule applied to complaint reads.
type ScopeKind string

// Visibility rules.
const (
	ScopeOwn    ScopeKind = "own"
	ScopeBranch ScopeKind = "branch"
	ScopeAll    ScopeKind = "all"
)

// Scope is the record-level filter derived from an identity.
type Scope struct {
	Kind   ScopeKind
	Email  string
	Branch string
}

// ScopeFor maps an identity onto its visibility rule:
// students see their own complaints, hods their branch, admins and principals everything.
func ScopeFor(identity models.Identity) (Scope, error) {
	switch identity.Role {
	case models.RoleStudent:
		return Scope{Kind: ScopeOwn, Email: identity.Email}, nil
	case models.RoleHOD:
		return Scope{Kind: ScopeBranch, Branch: identity.Branch}, nil
	case models.RoleAdmin, models.RolePrincipal:
		return Scope{Kind: ScopeAll}, nil
	default:
		return Scope{}, fmt.Errorf("%w: %q", ErrUnknownRole, identity.Role)
	}
}

// Apply returns a gorm scope narrowing a complaint query to the visible rows.
func (s Scope) Apply() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch s.Kind {
		case ScopeOwn:
			return db.Where("author_email = ?", s.Email)
		case ScopeBranch:
			return db.Where("branch = ?", s.Branch)
		case ScopeAll:
			return db
		default:
			return db.Where("1 = 0")
		}
	}
}

// Matches reports whether the complaint is visible under the scope.
func (s Scope) Matches(complaint models.Complaint) bool {
	switch s.Kind {
	case ScopeOwn:
		return complaint.AuthorEmail == s.Email
	case ScopeBranch:
		return complaint.Branch == s.Branch
	case ScopeAll:
		return true
	default:
		return false
	}
}

// Key renders the scope as a cache key fragment. Values are escaped, never folded, so two keys
// are equal only when Apply would filter on the same exact value.
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeOwn:
		return "own:" + url.QueryEscape(s.Email)
	case ScopeBranch:
		return "branch:" + url.QueryEscape(s.Branch)
	default:
		return string(s.Kind)
	}
}
