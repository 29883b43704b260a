package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/ids"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/observability"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
)

var (
	// ErrComplaintNotFound indicates the complaint does not exist or is outside the caller's scope.
	ErrComplaintNotFound = errors.New("complaint not found")
	// ErrComplaintAlreadyResolved indicates the complaint is already in its terminal state.
	ErrComplaintAlreadyResolved = errors.New("complaint already resolved")
	// ErrForbidden indicates the caller's role may not perform the operation.
	ErrForbidden = errors.New("operation not permitted")
)

// ComplaintChangeNotifier is told about every successful complaint mutation.
type ComplaintChangeNotifier interface {
	ComplaintChanged(ctx context.Context, complaint models.Complaint)
}

// ComplaintService is the complaint access layer. Every read and mutation is scoped by the
// identity passed in, which callers load fresh for each request.
type ComplaintService interface {
	List(ctx context.Context, identity models.Identity, req dto.ComplaintListRequest) ([]dto.ComplaintResponse, error)
	Get(ctx context.Context, identity models.Identity, id string) (dto.ComplaintResponse, error)
	Submit(ctx context.Context, identity models.Identity, req dto.ComplaintCreateRequest) (dto.ComplaintResponse, error)
	Resolve(ctx context.Context, identity models.Identity, id string) (dto.ComplaintResponse, error)
}

type complaintService struct {
	repo      repository.ComplaintRepository
	activity  ActivityRecorder
	notifiers []ComplaintChangeNotifier
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewComplaintService constructs the complaint service.
func NewComplaintService(repo repository.ComplaintRepository, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger, notifiers ...ComplaintChangeNotifier) ComplaintService {
	return &complaintService{
		repo:      repo,
		activity:  activity,
		notifiers: notifiers,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "complaint_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/campus-grievance-api/internal/service/complaint"),
		now:       time.Now,
	}
}

func (s *complaintService) List(ctx context.Context, identity models.Identity, req dto.ComplaintListRequest) ([]dto.ComplaintResponse, error) {
	filter, err := s.filterFor(identity, req)
	if err != nil {
		return nil, err
	}

	complaints, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewComplaintResponseSlice(complaints), nil
}

func (s *complaintService) Get(ctx context.Context, identity models.Identity, id string) (dto.ComplaintResponse, error) {
	scope, err := access.ScopeFor(identity)
	if err != nil {
		return dto.ComplaintResponse{}, err
	}

	complaint, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ComplaintResponse{}, ErrComplaintNotFound
		}
		return dto.ComplaintResponse{}, err
	}

	if !scope.Matches(complaint) {
		return dto.ComplaintResponse{}, ErrComplaintNotFound
	}

	return dto.NewComplaintResponse(complaint), nil
}

func (s *complaintService) Submit(ctx context.Context, identity models.Identity, req dto.ComplaintCreateRequest) (dto.ComplaintResponse, error) {
	if !access.CanSubmit(identity.Role) {
		return dto.ComplaintResponse{}, fmt.Errorf("submit complaint as %s: %w", identity.Role, ErrForbidden)
	}

	req = req.Normalize(s.sanitizer)
	if err := s.validator.Struct(req); err != nil {
		return dto.ComplaintResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "complaints.submit", trace.WithAttributes(
		attribute.String("complaint.category", req.Category),
		attribute.String("complaint.branch", identity.Branch),
	))
	defer span.End()

	now := s.now().UTC()
	complaint := models.Complaint{
		ID:            ids.NewAt(now),
		AuthorEmail:   identity.Email,
		AuthorName:    identity.Name,
		Category:      models.ComplaintCategory(req.Category),
		Description:   req.Description,
		Status:        models.ComplaintStatusPending,
		Branch:        identity.Branch,
		AttachmentURL: req.AttachmentURL,
		CreatedAt:     now,
	}

	if err := s.repo.Create(ctx, &complaint); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.ComplaintResponse{}, err
	}

	span.SetAttributes(attribute.String("complaint.id", complaint.ID))
	span.SetStatus(codes.Ok, "submitted")
	observability.ComplaintsSubmitted().WithLabelValues(string(complaint.Category)).Inc()

	s.record(ctx, identity, "complaint.submitted", complaint, map[string]interface{}{
		"category": string(complaint.Category),
		"branch":   complaint.Branch,
	})
	s.notify(ctx, complaint)

	return dto.NewComplaintResponse(complaint), nil
}

func (s *complaintService) Resolve(ctx context.Context, identity models.Identity, id string) (dto.ComplaintResponse, error) {
	if !access.CanResolve(identity.Role) {
		return dto.ComplaintResponse{}, fmt.Errorf("resolve complaint as %s: %w", identity.Role, ErrForbidden)
	}

	scope, err := access.ScopeFor(identity)
	if err != nil {
		return dto.ComplaintResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "complaints.resolve", trace.WithAttributes(
		attribute.String("complaint.id", id),
		attribute.String("resolver.role", string(identity.Role)),
	))
	defer span.End()

	existing, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ComplaintResponse{}, ErrComplaintNotFound
		}
		span.RecordError(err)
		return dto.ComplaintResponse{}, err
	}

	if !scope.Matches(existing) {
		span.SetStatus(codes.Error, "outside scope")
		return dto.ComplaintResponse{}, fmt.Errorf("resolve complaint outside %s scope: %w", scope.Kind, ErrForbidden)
	}
	if existing.IsResolved() {
		return dto.ComplaintResponse{}, ErrComplaintAlreadyResolved
	}

	resolved, err := s.repo.Resolve(ctx, existing.ID, s.now().UTC(), identity.Name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrComplaintResolved):
			return dto.ComplaintResponse{}, ErrComplaintAlreadyResolved
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.ComplaintResponse{}, ErrComplaintNotFound
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "persistence failed")
			return dto.ComplaintResponse{}, err
		}
	}

	span.SetStatus(codes.Ok, "resolved")
	observability.ComplaintsResolved().WithLabelValues(string(identity.Role)).Inc()

	s.record(ctx, identity, "complaint.resolved", resolved, map[string]interface{}{
		"previous_status": string(existing.Status),
		"branch":          resolved.Branch,
	})
	s.notify(ctx, resolved)

	return dto.NewComplaintResponse(resolved), nil
}

func (s *complaintService) filterFor(identity models.Identity, req dto.ComplaintListRequest) (repository.ComplaintFilter, error) {
	return complaintFilter(s.validator, identity, req)
}

func (s *complaintService) record(ctx context.Context, identity models.Identity, action string, complaint models.Complaint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	_, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    identity.UserID,
		ActorRole:  string(identity.Role),
		Action:     action,
		EntityType: "complaint",
		EntityID:   complaint.ID,
		Metadata:   metadata,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("complaint_id", complaint.ID).Str("action", action).Msg("failed to record complaint activity")
	}
}

func (s *complaintService) notify(ctx context.Context, complaint models.Complaint) {
	for _, notifier := range s.notifiers {
		if notifier != nil {
			notifier.ComplaintChanged(ctx, complaint)
		}
	}
}
