package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
)

const (
	defaultActivityPageSize = 25
	maxActivityPageSize     = 200
	redactedValue           = "***"
)

// ErrInvalidActivity is returned for entries without a dotted action or an entity type.
var ErrInvalidActivity = errors.New("invalid activity entry")

// sensitiveKeys are metadata keys whose values never reach the audit table.
var sensitiveKeys = []string{"email", "token", "password", "secret"}

// ActivityEntry is one auditable change, e.g. action "complaint.resolved" on entity "complaint".
type ActivityEntry struct {
	ActorID    string
	ActorRole  string
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]interface{}
}

// ActivityRecorder is what mutating services need from the audit trail.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error)
}

// ActivityService records and pages through the audit trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
		now:    time.Now,
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error) {
	log, err := entry.model(s.now().UTC())
	if err != nil {
		return dto.AdminActivityResponse{}, err
	}

	if err := s.repo.Create(ctx, &log); err != nil {
		s.logger.Error().Err(err).Str("action", log.Action).Str("entity_id", log.EntityID).Msg("failed to persist activity")
		return dto.AdminActivityResponse{}, err
	}

	return dto.NewAdminActivityResponse(log), nil
}

func (s *activityService) List(ctx context.Context, req dto.AdminActivityListRequest) (dto.AdminActivityListResponse, error) {
	req.Page = max(req.Page, 1)
	if req.PageSize <= 0 {
		req.PageSize = defaultActivityPageSize
	}
	req.PageSize = min(req.PageSize, maxActivityPageSize)

	entries, total, err := s.repo.List(ctx, repository.ActivityLogFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		ActorID:    strings.TrimSpace(req.ActorID),
		Action:     strings.ToLower(strings.TrimSpace(req.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(req.EntityType)),
		EntityID:   strings.TrimSpace(req.EntityID),
		Since:      req.Since,
	})
	if err != nil {
		return dto.AdminActivityListResponse{}, err
	}

	items := make([]dto.AdminActivityResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewAdminActivityResponse(entry))
	}

	return dto.AdminActivityListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (e ActivityEntry) model(at time.Time) (models.ActivityLog, error) {
	action := strings.ToLower(strings.TrimSpace(e.Action))
	if subject, event, ok := strings.Cut(action, "."); !ok || subject == "" || event == "" {
		return models.ActivityLog{}, fmt.Errorf("action %q: %w", e.Action, ErrInvalidActivity)
	}

	entityType := strings.ToLower(strings.TrimSpace(e.EntityType))
	if entityType == "" {
		return models.ActivityLog{}, fmt.Errorf("entity type for %s: %w", action, ErrInvalidActivity)
	}

	role := strings.ToLower(strings.TrimSpace(e.ActorRole))
	if role == "" {
		role = "system"
	}

	return models.ActivityLog{
		ActorID:    strings.TrimSpace(e.ActorID),
		ActorRole:  role,
		Action:     action,
		EntityType: entityType,
		EntityID:   strings.TrimSpace(e.EntityID),
		Metadata:   redactMetadata(e.Metadata),
		CreatedAt:  at,
	}, nil
}

func redactMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	redacted := make(datatypes.JSONMap, len(metadata))
	for key, value := range metadata {
		if isSensitiveKey(key) {
			redacted[key] = redactedValue
			continue
		}
		redacted[key] = value
	}
	return redacted
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
