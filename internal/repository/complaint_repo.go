package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// ErrComplaintResolved is returned when a resolve targets a complaint that is already resolved.
var ErrComplaintResolved = errors.New("complaint already resolved")

// ComplaintFilter narrows complaint queries. Scope is mandatory; the optional
// status and category filters only ever narrow the scoped set.
type ComplaintFilter struct {
	Scope    access.Scope
	Status   models.ComplaintStatus
	Category models.ComplaintCategory
	Limit    int
}

// ComplaintStats aggregates complaint counts by status.
type ComplaintStats struct {
	Total     int64
	Pending   int64
	Resolved  int64
	Escalated int64
}

// ComplaintRepository persists complaints.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	GetByID(ctx context.Context, id string) (models.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error)
	Stats(ctx context.Context, scope access.Scope) (ComplaintStats, error)
	Resolve(ctx context.Context, id string, resolvedAt time.Time, resolvedBy string) (models.Complaint, error)
}

type complaintRepository struct {
	db *gorm.DB
}

// NewComplaintRepository constructs the complaint repository.
func NewComplaintRepository(db *gorm.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

func (r *complaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&complaint).Error; err != nil {
		return models.Complaint{}, err
	}
	return complaint, nil
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	query := r.db.WithContext(ctx).Model(&models.Complaint{}).Scopes(filter.Scope.Apply())

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var complaints []models.Complaint
	if err := query.Order("created_at DESC").Order("id DESC").Find(&complaints).Error; err != nil {
		return nil, err
	}
	return complaints, nil
}

func (r *complaintRepository) Stats(ctx context.Context, scope access.Scope) (ComplaintStats, error) {
	var rows []struct {
		Status models.ComplaintStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Complaint{}).
		Scopes(scope.Apply()).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return ComplaintStats{}, err
	}

	var stats ComplaintStats
	for _, row := range rows {
		stats.Total += row.Total
		switch row.Status {
		case models.ComplaintStatusPending:
			stats.Pending = row.Total
		case models.ComplaintStatusResolved:
			stats.Resolved = row.Total
		case models.ComplaintStatusEscalated:
			stats.Escalated = row.Total
		}
	}
	return stats, nil
}

// Resolve moves a complaint into the Resolved state. The update is conditional on the
// complaint not being resolved yet; Resolved is terminal.
func (r *complaintRepository) Resolve(ctx context.Context, id string, resolvedAt time.Time, resolvedBy string) (models.Complaint, error) {
	var resolved models.Complaint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Complaint{}).
			Where("id = ? AND status <> ?", id, models.ComplaintStatusResolved).
			Updates(map[string]interface{}{
				"status":      models.ComplaintStatusResolved,
				"resolved_at": resolvedAt,
				"resolved_by": resolvedBy,
			})
		if update.Error != nil {
			return update.Error
		}

		if err := tx.Where("id = ?", id).First(&resolved).Error; err != nil {
			return err
		}

		if update.RowsAffected == 0 {
			return ErrComplaintResolved
		}
		return nil
	})
	if err != nil {
		return models.Complaint{}, err
	}
	return resolved, nil
}
