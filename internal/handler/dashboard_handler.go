package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/middleware"
	"github.com/noah-isme/campus-grievance-api/internal/service"
	"github.com/noah-isme/campus-grievance-api/internal/utils"
)

// DashboardHandler serves the scoped complaint summary.
type DashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register binds the dashboard route.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("", middleware.GuardRoute(access.PathDashboard), h.get)
}

func (h *DashboardHandler) get(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	response, err := h.service.Get(requestContext(c), identity)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build dashboard")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load dashboard")
	}

	if response.CacheHit {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}

	return utils.SendSuccess(c, "dashboard", response)
}
