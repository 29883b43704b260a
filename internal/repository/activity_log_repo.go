package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// ActivityLogFilter narrows the audit trail. EntityID with EntityType "complaint" gives one
// complaint's history.
type ActivityLogFilter struct {
	Page       int
	PageSize   int
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Since      time.Time
}

// ActivityLogRepository persists the audit trail of complaint and account changes.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Scopes(filter.apply)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ActivityLog
	err := query.
		Scopes(Paginate(filter.Page, filter.PageSize)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (f ActivityLogFilter) apply(db *gorm.DB) *gorm.DB {
	for column, value := range map[string]string{
		"actor_id":    f.ActorID,
		"action":      f.Action,
		"entity_type": f.EntityType,
		"entity_id":   f.EntityID,
	} {
		if value != "" {
			db = db.Where(column+" = ?", value)
		}
	}
	if !f.Since.IsZero() {
		db = db.Where("created_at >= ?", f.Since)
	}
	return db
}
