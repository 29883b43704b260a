package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta describes one page of total items. A non-positive size means a single page.
func NewPaginationMeta(page, size int, total int64) PaginationMeta {
	meta := PaginationMeta{Page: max(page, 1), PageSize: size, TotalItems: total, TotalPages: 1}
	if size > 0 {
		meta.TotalPages = int((total + int64(size) - 1) / int64(size))
	}
	return meta
}

// AdminUserListRequest defines filters for listing accounts.
type AdminUserListRequest struct {
	Page     int
	PageSize int
	Search   string
	Role     string `validate:"omitempty,oneof=student hod admin principal"`
}

// AdminUserResponse is the admin view of an account.
type AdminUserResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Branch    string      `json:"branch"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// AdminUserListResponse wraps a page of accounts together with role totals.
type AdminUserListResponse struct {
	Items      []AdminUserResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
	RoleCounts map[string]int64    `json:"role_counts"`
}

// AdminUserRoleUpdateRequest changes the role of an account.
type AdminUserRoleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=student hod admin principal"`
}

// NewAdminUserResponse merges a profile with its role.
func NewAdminUserResponse(profile models.Profile, role models.Role) AdminUserResponse {
	return AdminUserResponse{
		ID:        profile.UserID,
		Email:     profile.Email,
		Name:      profile.Name,
		Branch:    profile.Branch,
		Role:      role,
		CreatedAt: profile.CreatedAt,
	}
}

// AdminActivityListRequest defines filters for retrieving activity logs.
type AdminActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Since      time.Time
}

// AdminActivityResponse serializes activity log entries.
type AdminActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    string                 `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AdminActivityListResponse wraps paginated activity logs.
type AdminActivityListResponse struct {
	Items      []AdminActivityResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}

// NewAdminActivityResponse converts a model into an activity DTO.
func NewAdminActivityResponse(entry models.ActivityLog) AdminActivityResponse {
	return AdminActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadataFromJSON(entry.Metadata),
		CreatedAt:  entry.CreatedAt,
	}
}
