package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/middleware"
	"github.com/noah-isme/campus-grievance-api/internal/service"
	"github.com/noah-isme/campus-grievance-api/internal/utils"
)

// AttachmentHandler handles supporting document uploads for complaints.
type AttachmentHandler struct {
	service service.AttachmentService
	logger  zerolog.Logger
}

// NewAttachmentHandler constructs an attachment handler.
func NewAttachmentHandler(service service.AttachmentService, logger zerolog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		service: service,
		logger:  logger.With().Str("component", "attachment_handler").Logger(),
	}
}

// Register wires attachment routes.
func (h *AttachmentHandler) Register(router fiber.Router) {
	router.Post("", middleware.GuardRoute(access.PathLodgeComplaint), h.upload)
	router.Get("", middleware.GuardRoute(access.PathLodgeComplaint), h.list)
}

func (h *AttachmentHandler) upload(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.service.Upload(requestContext(c), identity, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrUploadTypeNotAllowed), errors.Is(err, service.ErrUploadScanFailed), errors.Is(err, service.ErrUploadMissing):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrForbidden):
			return utils.Redirect(c, fiber.StatusForbidden, "insufficient permissions", access.PathDashboard)
		case errors.Is(err, service.ErrStorageUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("upload failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "upload failed")
		}
	}

	return utils.Created(c, "upload successful", result)
}

func (h *AttachmentHandler) list(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	attachments, err := h.service.List(requestContext(c), identity)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list attachments")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list attachments")
	}

	return utils.SendSuccess(c, "attachments", attachments)
}
