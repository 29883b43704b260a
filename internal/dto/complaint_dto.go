package dto

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// MinDescriptionLength is the minimum number of characters a complaint description must carry.
const MinDescriptionLength = 20

// ComplaintCreateRequest lodges a new complaint.
type ComplaintCreateRequest struct {
	Category      string  `json:"category" validate:"required,oneof=Academic Infrastructure Faculty Hostel Library Canteen Sports Administration Other"`
	Description   string  `json:"description" validate:"required,min=20,max=5000"`
	AttachmentURL *string `json:"attachment_url,omitempty" validate:"omitempty,url,max=512"`
}

// Normalize trims the submission and, when a sanitizer is given, strips markup from the
// description. A blank attachment URL is dropped.
func (r ComplaintCreateRequest) Normalize(sanitizer *bluemonday.Policy) ComplaintCreateRequest {
	r.Category = strings.TrimSpace(r.Category)
	description := strings.TrimSpace(r.Description)
	if sanitizer != nil {
		description = strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(description)))
	}
	r.Description = description

	if r.AttachmentURL != nil {
		trimmed := strings.TrimSpace(*r.AttachmentURL)
		if trimmed == "" {
			r.AttachmentURL = nil
		} else {
			r.AttachmentURL = &trimmed
		}
	}
	return r
}

// ComplaintListRequest narrows a scoped complaint list.
type ComplaintListRequest struct {
	Status   string `json:"status,omitempty" validate:"omitempty,oneof=Pending Resolved Escalated"`
	Category string `json:"category,omitempty" validate:"omitempty,oneof=Academic Infrastructure Faculty Hostel Library Canteen Sports Administration Other"`
}

// ComplaintResponse serializes a complaint.
type ComplaintResponse struct {
	ID            string                   `json:"id"`
	AuthorEmail   string                   `json:"author_email"`
	AuthorName    string                   `json:"author_name"`
	Category      models.ComplaintCategory `json:"category"`
	Description   string                   `json:"description"`
	Status        models.ComplaintStatus   `json:"status"`
	Branch        string                   `json:"branch"`
	AttachmentURL *string                  `json:"attachment_url,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	ResolvedAt    *time.Time               `json:"resolved_at,omitempty"`
	ResolvedBy    *string                  `json:"resolved_by,omitempty"`
}

// ComplaintSnapshot is one full result set pushed to a live subscriber.
type ComplaintSnapshot struct {
	Sequence    uint64              `json:"sequence"`
	Items       []ComplaintResponse `json:"items"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// NewComplaintResponse converts a model into its API shape.
func NewComplaintResponse(complaint models.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:            complaint.ID,
		AuthorEmail:   complaint.AuthorEmail,
		AuthorName:    complaint.AuthorName,
		Category:      complaint.Category,
		Description:   complaint.Description,
		Status:        complaint.Status,
		Branch:        complaint.Branch,
		AttachmentURL: complaint.AttachmentURL,
		CreatedAt:     complaint.CreatedAt,
		ResolvedAt:    complaint.ResolvedAt,
		ResolvedBy:    complaint.ResolvedBy,
	}
}

// NewComplaintResponseSlice converts a list of models.
func NewComplaintResponseSlice(complaints []models.Complaint) []ComplaintResponse {
	responses := make([]ComplaintResponse, 0, len(complaints))
	for _, complaint := range complaints {
		responses = append(responses, NewComplaintResponse(complaint))
	}
	return responses
}

// DashboardResponse summarises the complaints visible to the caller.
type DashboardResponse struct {
	Scope          string              `json:"scope"`
	Total          int64               `json:"total"`
	Pending        int64               `json:"pending"`
	Resolved       int64               `json:"resolved"`
	Escalated      int64               `json:"escalated"`
	ResolutionRate int                 `json:"resolution_rate"`
	Recent         []ComplaintResponse `json:"recent"`
	GeneratedAt    time.Time           `json:"generated_at"`
	CacheHit       bool                `json:"cache_hit"`
}

// AttachmentResponse describes a stored supporting document.
type AttachmentResponse struct {
	ID        uint      `json:"id"`
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}
