package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/dto"
	"github.com/noah-isme/campus-grievance-api/internal/middleware"
	"github.com/noah-isme/campus-grievance-api/internal/service"
	"github.com/noah-isme/campus-grievance-api/internal/utils"
)

// AdminUserHandler wires the admin panel's user management endpoints.
type AdminUserHandler struct {
	service service.AdminUserService
	logger  zerolog.Logger
}

// NewAdminUserHandler constructs the handler.
func NewAdminUserHandler(service service.AdminUserService, logger zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_user_handler").Logger(),
	}
}

// Register attaches user admin routes to the router group.
func (h *AdminUserHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Patch("/:id/role", h.updateRole)
	router.Delete("/:id", h.delete)
}

func (h *AdminUserHandler) list(c *fiber.Ctx) error {
	actor, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	req := dto.AdminUserListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Role:     c.Query("role"),
	}

	response, err := h.service.List(requestContext(c), actor, req)
	if err != nil {
		return h.fail(c, err, "failed to list users")
	}

	return utils.OK(c, response.Items, "users retrieved", fiber.Map{
		"pagination":  response.Pagination,
		"role_counts": response.RoleCounts,
	})
}

func (h *AdminUserHandler) updateRole(c *fiber.Ctx) error {
	actor, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	var payload dto.AdminUserRoleUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.UpdateRole(requestContext(c), actor, c.Params("id"), payload)
	if err != nil {
		return h.fail(c, err, "failed to update role")
	}

	return utils.SendSuccess(c, "role updated", user)
}

func (h *AdminUserHandler) delete(c *fiber.Ctx) error {
	actor, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	if err := h.service.Delete(requestContext(c), actor, c.Params("id")); err != nil {
		return h.fail(c, err, "failed to delete user")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminUserHandler) fail(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return validationFailure(c, err)
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCannotModifySelf):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
