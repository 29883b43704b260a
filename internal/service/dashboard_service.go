package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/observability"
	"github.com/noah-isme/campus-grievance-api/internal/repository"
)

const (
	dashboardRecentLimit = 5
	dashboardVersionKey  = "dashboard:complaints:version"
)

// DashboardService summarises the complaints visible to an identity.
type DashboardService interface {
	Get(ctx context.Context, identity models.Identity) (dto.DashboardResponse, error)
	ComplaintChanged(ctx context.Context, complaint models.Complaint)
}

type dashboardService struct {
	complaints repository.ComplaintRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewDashboardService builds the dashboard aggregator. The cache is optional.
func NewDashboardService(complaints repository.ComplaintRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		complaints: complaints,
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger.With().Str("component", "dashboard_service").Logger(),
		now:        time.Now,
	}
}

func (s *dashboardService) Get(ctx context.Context, identity models.Identity) (dto.DashboardResponse, error) {
	scope, err := access.ScopeFor(identity)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	cacheKey := s.cacheKey(ctx, scope)
	if cacheKey != "" {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.DashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.DashboardCache().WithLabelValues("hit").Inc()
				response.CacheHit = true
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
		observability.DashboardCache().WithLabelValues("miss").Inc()
	}

	stats, err := s.complaints.Stats(ctx, scope)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	recent, err := s.complaints.List(ctx, repository.ComplaintFilter{Scope: scope, Limit: dashboardRecentLimit})
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	response := dto.DashboardResponse{
		Scope:          string(scope.Kind),
		Total:          stats.Total,
		Pending:        stats.Pending,
		Resolved:       stats.Resolved,
		Escalated:      stats.Escalated,
		ResolutionRate: ResolutionRate(stats.Resolved, stats.Total),
		Recent:         dto.NewComplaintResponseSlice(recent),
		GeneratedAt:    s.now().UTC(),
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

// ComplaintChanged invalidates every cached dashboard by bumping the shared version.
func (s *dashboardService) ComplaintChanged(ctx context.Context, complaint models.Complaint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, dashboardVersionKey).Err(); err != nil {
		s.logger.Warn().Err(err).Str("complaint_id", complaint.ID).Msg("failed to invalidate dashboard cache")
	}
}

func (s *dashboardService) cacheKey(ctx context.Context, scope access.Scope) string {
	if s.cache == nil {
		return ""
	}

	version, err := s.cache.Get(ctx, dashboardVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("failed to read dashboard cache version")
		return ""
	}

	return fmt.Sprintf("dashboard:complaints:v%d:%s", version, scope.Key())
}

// ResolutionRate returns the resolved share as a whole percentage.
func ResolutionRate(resolved, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(resolved) / float64(total) * 100))
}
