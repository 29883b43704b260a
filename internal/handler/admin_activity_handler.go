package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/service"
	"github.com/noah-isme/campus-grievance-api/internal/utils"
)

// AdminActivityHandler serves the audit trail of complaint and account changes.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register binds the audit routes. Callers guard the group for admins.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

// list accepts page, page_size, actor_id, action, entity_type, complaint_id and since (RFC 3339).
func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	req := dto.AdminActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		ActorID:    c.Query("actor_id"),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}

	if complaintID := strings.TrimSpace(c.Query("complaint_id")); complaintID != "" {
		req.EntityType = "complaint"
		req.EntityID = complaintID
	}

	if since := strings.TrimSpace(c.Query("since")); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid since", fiber.Map{"since": "since must be an RFC 3339 timestamp"})
		}
		req.Since = parsed.UTC()
	}

	response, err := h.service.List(requestContext(c), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activity")
	}

	return utils.OK(c, response.Items, "activity retrieved", fiber.Map{"pagination": response.Pagination})
}
