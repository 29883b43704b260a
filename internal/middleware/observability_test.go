package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-grievance-api/internal/observability"
)

func TestObservabilityCountsByRouteTemplate(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Use(Observability(zerolog.Nop()))
	app.Get("/api/v1/observed/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "missing" {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/metrics-free", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, path := range []string{"/api/v1/observed/a", "/api/v1/observed/b", "/api/v1/observed/missing", "/metrics-free"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
	}

	route := "/api/v1/observed/:id"
	require.Equal(t, float64(2), testutil.ToFloat64(observability.HTTPRequests().WithLabelValues(fiber.MethodGet, route, "200")))
	require.Equal(t, float64(1), testutil.ToFloat64(observability.HTTPErrors().WithLabelValues(fiber.MethodGet, route, "404")))
	require.Equal(t, float64(0), testutil.ToFloat64(observability.HTTPRequests().WithLabelValues(fiber.MethodGet, "/metrics-free", "200")))
}

func TestIsFeedRoute(t *testing.T) {
	require.True(t, isFeedRoute("/api/v1/complaints/stream"))
	require.True(t, isFeedRoute("/api/v1/complaints/ws"))
	require.False(t, isFeedRoute("/api/v1/complaints/:id"))
	require.False(t, isFeedRoute("/api/v1/complaints"))
}
