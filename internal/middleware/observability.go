package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-grievance-api/internal/observability"
)

const slowRequestThreshold = 500 * time.Millisecond

// Observability records request metrics and one structured log line per API request.
// Live feed routes are counted but kept out of the latency histogram since they stay open.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		if !strings.HasPrefix(c.Path(), "/api/") {
			return err
		}

		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.HTTPRequests().WithLabelValues(method, route, statusLabel).Inc()
		if status >= fiber.StatusBadRequest {
			observability.HTTPErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		streaming := isFeedRoute(route)
		if !streaming {
			observability.HTTPLatency().WithLabelValues(method, route).Observe(elapsed.Seconds())
		}

		fields := logger.With().
			Str("correlation_id", GetCorrelationID(c)).
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Dur("elapsed", elapsed)
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			fields = fields.Str("user_id", userID)
		}
		if role, ok := c.Locals("user_role").(string); ok && role != "" {
			fields = fields.Str("role", role)
		}
		requestLogger := fields.Logger()

		switch {
		case status >= fiber.StatusInternalServerError:
			requestLogger.Error().Msg("request failed")
		case status >= fiber.StatusBadRequest:
			requestLogger.Warn().Msg("request rejected")
		case !streaming && elapsed > slowRequestThreshold:
			requestLogger.Warn().Msg("slow request")
		default:
			requestLogger.Debug().Msg("request completed")
		}

		return err
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}

func isFeedRoute(route string) bool {
	return strings.HasSuffix(route, "/complaints/stream") || strings.HasSuffix(route, "/complaints/ws")
}
