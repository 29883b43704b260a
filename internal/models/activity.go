package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is one audit entry: a complaint submitted or resolved, or an account changed by an admin.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    string            `gorm:"type:varchar(36);index;not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;index;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null;index:idx_activity_entity,priority:1" json:"entity_type"`
	EntityID   string            `gorm:"size:64;index:idx_activity_entity,priority:2" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

// Attachment stores metadata about a supporting document uploaded by a student.
type Attachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:varchar(36);index;not null" json:"owner_id"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	MimeType  string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes int64     `gorm:"not null" json:"size_bytes"`
	Checksum  string    `gorm:"size:128;index" json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// All returns every model managed by migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&UserRole{},
		&RefreshSession{},
		&Complaint{},
		&ActivityLog{},
		&Attachment{},
	}
}
