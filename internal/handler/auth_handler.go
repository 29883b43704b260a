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

// AuthHandler exposes registration, sign-in and session endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the auth routes. Protected runs before /me; loginLimit, when set, guards /login.
func (h *AuthHandler) Register(router fiber.Router, protected []fiber.Handler, loginLimit fiber.Handler) {
	router.Post("/register", h.register)
	if loginLimit != nil {
		router.Post("/login", loginLimit, h.login)
	} else {
		router.Post("/login", h.login)
	}
	router.Post("/refresh", h.refresh)
	router.Post("/logout", h.logout)

	me := append(append([]fiber.Handler{}, protected...), h.me)
	router.Get("/me", me...)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.Register(requestContext(c), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return validationFailure(c, err)
		case errors.Is(err, service.ErrEmailTaken):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to register account")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to register account")
		}
	}

	return utils.Created(c, "account registered", user)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return validationFailure(c, err)
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		case errors.Is(err, service.ErrProfileNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to sign in")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to sign in")
		}
	}

	return utils.SendSuccess(c, "signed in", response)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var payload dto.RefreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Refresh(requestContext(c), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return validationFailure(c, err)
		case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrProfileNotFound):
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to refresh session")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to refresh session")
		}
	}

	return utils.SendSuccess(c, "session refreshed", response)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	var payload dto.LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	if err := h.service.Logout(requestContext(c), payload); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to revoke session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to sign out")
	}

	return utils.SendSuccess(c, "signed out", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return unauthenticated(c)
	}

	response, err := h.service.Me(requestContext(c), identity.UserID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			return unauthenticated(c)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load current user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load current user")
	}

	return utils.SendSuccess(c, "current user", response)
}
