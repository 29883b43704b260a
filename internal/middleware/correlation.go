package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	correlationHeader    = "X-Correlation-ID"
	correlationLocalKey  = "correlation_id"
	maxCorrelationLength = 128
)

type correlationKey struct{}

// CorrelationID tags every request with the caller's X-Correlation-ID (or X-Request-ID), minting a
// UUID when neither is usable. The id is echoed back and travels in locals and the user context.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := acceptCorrelation(c.Get(correlationHeader))
		if id == "" {
			id = acceptCorrelation(c.Get("X-Request-ID"))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationLocalKey, id)
		c.Set(correlationHeader, id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))

		return c.Next()
	}
}

// CorrelationIDFromContext returns the id stored by ContextWithCorrelation, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// GetCorrelationID returns the id bound to the request.
func GetCorrelationID(c *fiber.Ctx) string {
	if id, ok := c.Locals(correlationLocalKey).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation carries the id into work that outlives the request, such as live feeds.
func ContextWithCorrelation(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id = strings.TrimSpace(id); id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// acceptCorrelation drops ids that are too long or carry characters unsafe for logs and headers.
func acceptCorrelation(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxCorrelationLength {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}
