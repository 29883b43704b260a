package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// SessionRepository stores hashed refresh tokens.
type SessionRepository interface {
	Create(ctx context.Context, session *models.RefreshSession) error
	GetActiveByHash(ctx context.Context, tokenHash string) (models.RefreshSession, error)
	Revoke(ctx context.Context, id string) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository constructs the refresh session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.RefreshSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetActiveByHash(ctx context.Context, tokenHash string) (models.RefreshSession, error) {
	var session models.RefreshSession
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND revoked = ?", tokenHash, false).
		First(&session).Error
	if err != nil {
		return models.RefreshSession{}, err
	}
	return session, nil
}

// Revoke marks a single session revoked. It reports gorm.ErrRecordNotFound when the
// session was already revoked, so concurrent rotations of one token cannot both succeed.
func (r *sessionRepository) Revoke(ctx context.Context, id string) error {
	update := r.db.WithContext(ctx).Model(&models.RefreshSession{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionRepository) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).Model(&models.RefreshSession{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR revoked = ?", before, true).
		Delete(&models.RefreshSession{})
	return result.RowsAffected, result.Error
}
