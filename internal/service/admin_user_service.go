package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
)

const (
	defaultAdminPageSize = 20
	maxAdminPageSize     = 100
)

var (
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrCannotModifySelf indicates an administrator tried to re-role or delete their own account.
	ErrCannotModifySelf = errors.New("cannot change or delete your own account")
)

// AccountChangeNotifier is told when an account's role or existence changes.
type AccountChangeNotifier interface {
	AccountChanged(ctx context.Context, userID string)
}

// AdminUserService backs the admin panel's user management.
type AdminUserService interface {
	List(ctx context.Context, actor models.Identity, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error)
	UpdateRole(ctx context.Context, actor models.Identity, userID string, req dto.AdminUserRoleUpdateRequest) (dto.UserResponse, error)
	Delete(ctx context.Context, actor models.Identity, userID string) error
}

type adminUserService struct {
	accounts  repository.AccountRepository
	activity  ActivityRecorder
	notifiers []AccountChangeNotifier
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminUserService constructs the admin user service.
func NewAdminUserService(accounts repository.AccountRepository, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger, notifiers ...AccountChangeNotifier) AdminUserService {
	return &adminUserService{
		accounts:  accounts,
		activity:  activity,
		notifiers: notifiers,
		validator: validate,
		logger:    logger.With().Str("component", "admin_user_service").Logger(),
	}
}

func (s *adminUserService) List(ctx context.Context, actor models.Identity, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error) {
	if !access.CanManageUsers(actor.Role) {
		return dto.AdminUserListResponse{}, ErrForbidden
	}

	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := s.validator.Struct(req); err != nil {
		return dto.AdminUserListResponse{}, err
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = defaultAdminPageSize
	}
	if req.PageSize > maxAdminPageSize {
		req.PageSize = maxAdminPageSize
	}

	records, total, err := s.accounts.List(ctx, repository.AccountFilter{
		Search:   req.Search,
		Role:     models.Role(req.Role),
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return dto.AdminUserListResponse{}, err
	}

	counts, err := s.accounts.CountByRole(ctx)
	if err != nil {
		return dto.AdminUserListResponse{}, err
	}

	items := make([]dto.AdminUserResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewAdminUserResponse(record.Profile, record.Role))
	}

	roleCounts := make(map[string]int64, len(counts))
	for role, count := range counts {
		roleCounts[string(role)] = count
	}

	return dto.AdminUserListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
		RoleCounts: roleCounts,
	}, nil
}

func (s *adminUserService) UpdateRole(ctx context.Context, actor models.Identity, userID string, req dto.AdminUserRoleUpdateRequest) (dto.UserResponse, error) {
	if !access.CanManageUsers(actor.Role) {
		return dto.UserResponse{}, ErrForbidden
	}

	userID = strings.TrimSpace(userID)
	if userID == actor.UserID {
		return dto.UserResponse{}, ErrCannotModifySelf
	}

	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	previous, err := s.accounts.GetIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	role := models.Role(req.Role)
	if err := s.accounts.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	updated := previous
	updated.Role = role

	s.record(ctx, actor, "user.role_changed", userID, map[string]interface{}{
		"from": string(previous.Role),
		"to":   string(role),
	})
	s.notify(ctx, userID)

	s.logger.Info().
		Str("actor_id", actor.UserID).
		Str("user_id", userID).
		Str("from", string(previous.Role)).
		Str("to", string(role)).
		Msg("user role changed")

	return dto.NewUserResponse(updated), nil
}

func (s *adminUserService) Delete(ctx context.Context, actor models.Identity, userID string) error {
	if !access.CanManageUsers(actor.Role) {
		return ErrForbidden
	}

	userID = strings.TrimSpace(userID)
	if userID == actor.UserID {
		return ErrCannotModifySelf
	}

	if err := s.accounts.Delete(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.record(ctx, actor, "user.deleted", userID, nil)
	s.notify(ctx, userID)

	s.logger.Info().Str("actor_id", actor.UserID).Str("user_id", userID).Msg("user deleted")
	return nil
}

func (s *adminUserService) record(ctx context.Context, actor models.Identity, action, userID string, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.UserID,
		ActorRole:  string(actor.Role),
		Action:     action,
		EntityType: "user",
		EntityID:   userID,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record admin activity")
	}
}

func (s *adminUserService) notify(ctx context.Context, userID string) {
	for _, notifier := range s.notifiers {
		if notifier != nil {
			notifier.AccountChanged(ctx, userID)
		}
	}
}
