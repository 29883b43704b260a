package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/campus-grievance-api/internal/dto"
)

// Users exposes the admin panel's account management.
type Users struct {
	client *Client
}

// UserPage is one page of accounts plus per-role totals.
type UserPage struct {
	Items      []dto.AdminUserResponse
	Pagination dto.PaginationMeta
	RoleCounts map[string]int64
}

// List returns a page of accounts. Only admins may call it.
func (u *Users) List(ctx context.Context, req dto.AdminUserListRequest) (UserPage, error) {
	if err := u.client.validate(req); err != nil {
		return UserPage{}, err
	}

	query := url.Values{}
	if req.Page > 0 {
		query.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.Search != "" {
		query.Set("search", req.Search)
	}
	if req.Role != "" {
		query.Set("role", req.Role)
	}

	var page UserPage
	env, err := u.client.authorized(ctx, http.MethodGet, "/admin/users", query, nil, &page.Items)
	if err != nil {
		return UserPage{}, err
	}

	if len(env.Meta) > 0 {
		var meta struct {
			Pagination dto.PaginationMeta `json:"pagination"`
			RoleCounts map[string]int64   `json:"role_counts"`
		}
		if err := json.Unmarshal(env.Meta, &meta); err != nil {
			return UserPage{}, err
		}
		page.Pagination = meta.Pagination
		page.RoleCounts = meta.RoleCounts
	}
	return page, nil
}

// UpdateRole assigns a new role to another account.
func (u *Users) UpdateRole(ctx context.Context, userID, role string) (dto.UserResponse, error) {
	req := dto.AdminUserRoleUpdateRequest{Role: role}
	if err := u.client.validate(req); err != nil {
		return dto.UserResponse{}, err
	}

	var user dto.UserResponse
	_, err := u.client.authorized(ctx, http.MethodPatch, "/admin/users/"+url.PathEscape(userID)+"/role", nil, req, &user)
	return user, err
}

// Delete removes another account together with its profile and role.
func (u *Users) Delete(ctx context.Context, userID string) error {
	_, err := u.client.authorized(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(userID), nil, nil, nil)
	return err
}
