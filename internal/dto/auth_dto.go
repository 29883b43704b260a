package dto

import (
	"time"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// RegisterRequest creates a student account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=255"`
	Branch   string `json:"branch" validate:"required,max=128,branch"`
}

// LoginRequest signs an account in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest revokes a refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserResponse is the public shape of a signed-in identity.
type UserResponse struct {
	ID     string      `json:"id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Branch string      `json:"branch"`
	Role   models.Role `json:"role"`
}

// AuthResponse is returned after a successful login or refresh.
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         UserResponse `json:"user"`
}

// MeResponse describes the current identity and its navigation menu.
type MeResponse struct {
	User       UserResponse     `json:"user"`
	Navigation []access.NavItem `json:"navigation"`
}

// NewUserResponse converts an identity into its public representation.
func NewUserResponse(identity models.Identity) UserResponse {
	return UserResponse{
		ID:     identity.UserID,
		Email:  identity.Email,
		Name:   identity.Name,
		Branch: identity.Branch,
		Role:   identity.Role,
	}
}

// Identity converts the response back into an identity value.
func (u UserResponse) Identity() models.Identity {
	return models.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Branch: u.Branch,
		Role:   u.Role,
	}
}
