package observability

import (
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, handler fiber.Handler) (int, string) {
	t.Helper()
	app := fiber.New()
	app.Get("/metrics", handler)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMetricsHandlerServesGatherer(t *testing.T) {
	registry := prometheus.NewRegistry()
	resolved := prometheus.NewCounter(prometheus.CounterOpts{Name: "grievance_test_resolved_total", Help: "test"})
	registry.MustRegister(resolved)
	resolved.Add(3)

	status, body := scrape(t, MetricsHandler(registry, zerolog.Nop()))
	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, body, "grievance_test_resolved_total 3")
}

func TestMetricsHandlerLogsCollectorErrors(t *testing.T) {
	var logs bytes.Buffer
	gatherer := prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return nil, errors.New("collector offline")
	})

	status, _ := scrape(t, MetricsHandler(gatherer, zerolog.New(&logs)))
	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, logs.String(), "collector offline")
	require.Contains(t, logs.String(), `"component":"metrics"`)
}
