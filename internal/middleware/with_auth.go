package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/service"
	"github.com/noah-isme/campus-grievance-api/internal/utils"
)

const identityLocalKey = "identity"

// IdentityLoader resolves the current profile and role of an authenticated account.
type IdentityLoader interface {
	Identity(ctx context.Context, userID string) (models.Identity, error)
}

// WithIdentity loads the caller's identity from the store on every request, so a role
// change applies to the very next call regardless of what the token says.
func WithIdentity(loader IdentityLoader, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return unauthorized(c, "authentication required")
		}

		identity, err := loader.Identity(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, service.ErrProfileNotFound) || errors.Is(err, access.ErrUnknownRole) {
				return unauthorized(c, "user profile not found")
			}
			logger.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Str("user_id", userID).Msg("failed to load identity")
			return utils.Fail(c, fiber.StatusInternalServerError, "failed to load user profile", nil)
		}

		c.Locals(identityLocalKey, identity)
		c.Locals("user_role", string(identity.Role))
		return c.Next()
	}
}

// IdentityFromContext returns the identity loaded by WithIdentity.
func IdentityFromContext(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(identityLocalKey).(models.Identity)
	return identity, ok
}
