package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/models"
	"github.com/noah-isme/campus-grievance-api/internal/utils"
)

// Guard applies the route guard to an API route. An empty allowed set admits any signed-in role.
func Guard(allowed ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var current *models.Identity
		if identity, ok := IdentityFromContext(c); ok {
			current = &identity
		}

		decision := access.Decide(current, allowed, false)
		switch decision {
		case access.Render:
			return c.Next()
		case access.RedirectSignIn:
			return utils.Redirect(c, fiber.StatusUnauthorized, "authentication required", decision.Target())
		default:
			return utils.Redirect(c, fiber.StatusForbidden, "insufficient permissions", decision.Target())
		}
	}
}

// GuardRoute applies the role set registered for a client page to the API routes backing it.
func GuardRoute(path string) fiber.Handler {
	return Guard(access.RouteRoles[path]...)
}
