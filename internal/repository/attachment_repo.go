package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// AttachmentRepository persists metadata about uploaded supporting documents.
type AttachmentRepository interface {
	Create(ctx context.Context, record *models.Attachment) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Attachment, error)
}

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository constructs a repository for attachment records.
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, record *models.Attachment) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attachmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Attachment, error) {
	var records []models.Attachment
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
