package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/campus-grievance-api/internal/utils"
)

// RateLimit throttles a route per caller. Signed-in callers are keyed by account; sign-in attempts
// are keyed by IP plus the submitted email so one address behind a campus NAT cannot lock out others.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return identifier + ":" + rateLimitSubject(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many attempts, please wait and try again", fiber.Map{
				"retry_after_seconds": int(window.Seconds()),
			})
		},
	})
}

func rateLimitSubject(c *fiber.Ctx) string {
	if userID, _ := c.Locals("user_id").(string); userID != "" {
		return "user:" + userID
	}

	var body struct {
		Email string `json:"email"`
	}
	if len(c.Body()) > 0 && c.BodyParser(&body) == nil {
		if email := strings.ToLower(strings.TrimSpace(body.Email)); email != "" {
			return "ip:" + c.IP() + ":" + email
		}
	}
	return "ip:" + c.IP()
}
