package models

import "time"

// ComplaintStatus captures the lifecycle state of a complaint.
type ComplaintStatus string

// Complaint statuses. Escalated is reserved; no workflow moves a complaint into it.
const (
	ComplaintStatusPending   ComplaintStatus = "Pending"
	ComplaintStatusResolved  ComplaintStatus = "Resolved"
	ComplaintStatusEscalated ComplaintStatus = "Escalated"
)

// ComplaintStatuses returns every known status.
func ComplaintStatuses() []ComplaintStatus {
	return []ComplaintStatus{ComplaintStatusPending, ComplaintStatusResolved, ComplaintStatusEscalated}
}

// Valid reports whether the status is known.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusPending, ComplaintStatusResolved, ComplaintStatusEscalated:
		return true
	default:
		return false
	}
}

// ComplaintCategory is the closed set of complaint subjects.
type ComplaintCategory string

// Complaint categories.
const (
	CategoryAcademic       ComplaintCategory = "Academic"
	CategoryInfrastructure ComplaintCategory = "Infrastructure"
	CategoryFaculty        ComplaintCategory = "Faculty"
	CategoryHostel         ComplaintCategory = "Hostel"
	CategoryLibrary        ComplaintCategory = "Library"
	CategoryCanteen        ComplaintCategory = "Canteen"
	CategorySports         ComplaintCategory = "Sports"
	CategoryAdministration ComplaintCategory = "Administration"
	CategoryOther          ComplaintCategory = "Other"
)

// ComplaintCategories returns every category in display order.
func ComplaintCategories() []ComplaintCategory {
	return []ComplaintCategory{
		CategoryAcademic,
		CategoryInfrastructure,
		CategoryFaculty,
		CategoryHostel,
		CategoryLibrary,
		CategoryCanteen,
		CategorySports,
		CategoryAdministration,
		CategoryOther,
	}
}

// Valid reports whether the category is known.
func (c ComplaintCategory) Valid() bool {
	for _, candidate := range ComplaintCategories() {
		if candidate == c {
			return true
		}
	}
	return false
}

// Complaint is a grievance lodged by a student.
type Complaint struct {
	ID            string            `gorm:"type:varchar(26);primaryKey" json:"id"`
	AuthorEmail   string            `gorm:"size:255;index;not null" json:"author_email"`
	AuthorName    string            `gorm:"size:255;not null" json:"author_name"`
	Category      ComplaintCategory `gorm:"size:32;index;not null" json:"category"`
	Description   string            `gorm:"type:text;not null" json:"description"`
	Status        ComplaintStatus   `gorm:"size:16;index;not null" json:"status"`
	Branch        string            `gorm:"size:128;index;not null" json:"branch"`
	AttachmentURL *string           `gorm:"size:512" json:"attachment_url,omitempty"`
	CreatedAt     time.Time         `gorm:"index;not null" json:"created_at"`
	ResolvedAt    *time.Time        `json:"resolved_at,omitempty"`
	ResolvedBy    *string           `gorm:"size:255" json:"resolved_by,omitempty"`
}

// IsResolved reports whether the complaint reached its terminal state.
func (c Complaint) IsResolved() bool {
	return c.Status == ComplaintStatusResolved
}
