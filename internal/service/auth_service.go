package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/observability"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
)

var (
	// ErrEmailTaken indicates an account already exists for the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates the email or password did not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrProfileNotFound indicates the credentials are valid but no profile or role is bound to the account.
	ErrProfileNotFound = errors.New("user profile not found")
	// ErrInvalidToken indicates a refresh token is unknown, revoked or expired.
	ErrInvalidToken = errors.New("invalid or expired refresh token")
)

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AuthService is the identity provider: it registers accounts and issues sessions.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (dto.AuthResponse, error)
	Logout(ctx context.Context, req dto.LogoutRequest) error
	Identity(ctx context.Context, userID string) (models.Identity, error)
	Me(ctx context.Context, userID string) (dto.MeResponse, error)
	Provision(ctx context.Context, req dto.RegisterRequest, role models.Role) (dto.UserResponse, error)
}

type authService struct {
	accounts  repository.AccountRepository
	sessions  repository.SessionRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cfg       AuthConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(accounts repository.AccountRepository, sessions repository.SessionRepository, validate *validator.Validate, cfg AuthConfig, logger zerolog.Logger) AuthService {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 30 * 24 * time.Hour
	}

	return &authService{
		accounts:  accounts,
		sessions:  sessions,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cfg:       cfg,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error) {
	identity, err := s.create(ctx, req, models.RoleStudent)
	if err != nil {
		observability.AuthAttempts().WithLabelValues("register", outcomeLabel(err)).Inc()
		return dto.UserResponse{}, err
	}

	observability.AuthAttempts().WithLabelValues("register", "success").Inc()
	s.logger.Info().Str("user_id", identity.UserID).Str("branch", identity.Branch).Msg("account registered")
	return dto.NewUserResponse(identity), nil
}

func (s *authService) Provision(ctx context.Context, req dto.RegisterRequest, role models.Role) (dto.UserResponse, error) {
	if !role.Valid() {
		return dto.UserResponse{}, fmt.Errorf("provision account: %w", access.ErrUnknownRole)
	}

	identity, err := s.create(ctx, req, role)
	if errors.Is(err, ErrEmailTaken) {
		user, lookupErr := s.accounts.GetUserByEmail(ctx, NormalizeEmail(req.Email))
		if lookupErr != nil {
			return dto.UserResponse{}, lookupErr
		}
		existing, identityErr := s.accounts.GetIdentity(ctx, user.ID)
		if identityErr != nil {
			return dto.UserResponse{}, identityErr
		}
		s.logger.Debug().Str("user_id", existing.UserID).Msg("account already provisioned")
		return dto.NewUserResponse(existing), nil
	}
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Str("user_id", identity.UserID).Str("role", string(role)).Msg("account provisioned")
	return dto.NewUserResponse(identity), nil
}

func (s *authService) create(ctx context.Context, req dto.RegisterRequest, role models.Role) (models.Identity, error) {
	req.Email = NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(s.sanitizer.Sanitize(req.Name))
	req.Branch = strings.TrimSpace(req.Branch)

	if err := s.validator.Struct(req); err != nil {
		return models.Identity{}, err
	}

	if _, err := s.accounts.GetUserByEmail(ctx, req.Email); err == nil {
		return models.Identity{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: req.Email, PasswordHash: string(hash)}
	profile := &models.Profile{Email: req.Email, Name: req.Name, Branch: req.Branch}
	if err := s.accounts.Create(ctx, user, profile, role); err != nil {
		if _, lookupErr := s.accounts.GetUserByEmail(ctx, req.Email); lookupErr == nil {
			return models.Identity{}, ErrEmailTaken
		}
		return models.Identity{}, fmt.Errorf("failed to create account: %w", err)
	}

	return models.Identity{
		UserID: user.ID,
		Email:  profile.Email,
		Name:   profile.Name,
		Branch: profile.Branch,
		Role:   role,
	}, nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		observability.AuthAttempts().WithLabelValues("login", "invalid").Inc()
		return dto.AuthResponse{}, err
	}

	user, err := s.accounts.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.AuthAttempts().WithLabelValues("login", "rejected").Inc()
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		observability.AuthAttempts().WithLabelValues("login", "rejected").Inc()
		return dto.AuthResponse{}, ErrInvalidCredentials
	}

	identity, err := s.Identity(ctx, user.ID)
	if err != nil {
		observability.AuthAttempts().WithLabelValues("login", outcomeLabel(err)).Inc()
		if errors.Is(err, ErrProfileNotFound) {
			s.logger.Warn().Str("user_id", user.ID).Msg("credentials valid but profile missing")
		}
		return dto.AuthResponse{}, err
	}

	response, err := s.issue(ctx, identity)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	observability.AuthAttempts().WithLabelValues("login", "success").Inc()
	return response, nil
}

func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	stored, err := s.sessions.GetActiveByHash(ctx, hashToken(req.RefreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.AuthAttempts().WithLabelValues("refresh", "rejected").Inc()
			return dto.AuthResponse{}, ErrInvalidToken
		}
		return dto.AuthResponse{}, err
	}

	if err := s.sessions.Revoke(ctx, stored.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrInvalidToken
		}
		return dto.AuthResponse{}, err
	}

	if s.now().After(stored.ExpiresAt) {
		observability.AuthAttempts().WithLabelValues("refresh", "expired").Inc()
		return dto.AuthResponse{}, ErrInvalidToken
	}

	identity, err := s.Identity(ctx, stored.UserID)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	response, err := s.issue(ctx, identity)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	observability.AuthAttempts().WithLabelValues("refresh", "success").Inc()
	return response, nil
}

func (s *authService) Logout(ctx context.Context, req dto.LogoutRequest) error {
	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		return nil
	}
	return s.sessions.RevokeByHash(ctx, hashToken(token))
}

// Identity loads the current profile and role for an account. It is called on every
// authenticated request so role changes take effect immediately.
func (s *authService) Identity(ctx context.Context, userID string) (models.Identity, error) {
	identity, err := s.accounts.GetIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Identity{}, ErrProfileNotFound
		}
		return models.Identity{}, err
	}
	if !identity.Role.Valid() {
		return models.Identity{}, fmt.Errorf("%w: %q", access.ErrUnknownRole, identity.Role)
	}
	return identity, nil
}

func (s *authService) Me(ctx context.Context, userID string) (dto.MeResponse, error) {
	identity, err := s.Identity(ctx, userID)
	if err != nil {
		return dto.MeResponse{}, err
	}

	return dto.MeResponse{
		User:       dto.NewUserResponse(identity),
		Navigation: access.NavigationFor(identity.Role),
	}, nil
}

func (s *authService) issue(ctx context.Context, identity models.Identity) (dto.AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := jwt.MapClaims{
		"sub":   identity.UserID,
		"email": identity.Email,
		"role":  string(identity.Role),
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return dto.AuthResponse{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	refreshToken := base64.URLEncoding.EncodeToString(rawBytes)

	session := &models.RefreshSession{
		UserID:    identity.UserID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return dto.AuthResponse{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         dto.NewUserResponse(identity),
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmailTaken):
		return "conflict"
	case errors.Is(err, ErrProfileNotFound):
		return "profile_missing"
	case isValidationErr(err):
		return "invalid"
	default:
		return "error"
	}
}

func isValidationErr(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
