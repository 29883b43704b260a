package observability

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// scrapeLogger routes promhttp collection errors into zerolog.
type scrapeLogger struct {
	logger zerolog.Logger
}

func (l scrapeLogger) Println(v ...interface{}) {
	l.logger.Warn().Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

// MetricsHandler serves the scrape endpoint for gatherer, or the default registry when nil.
// A failing collector is logged and the remaining families are still served.
func MetricsHandler(gatherer prometheus.Gatherer, logger zerolog.Logger) fiber.Handler {
	if gatherer == nil {
		RegisterMetrics()
		gatherer = prometheus.DefaultGatherer
	}

	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:      scrapeLogger{logger: logger.With().Str("component", "metrics").Logger()},
		ErrorHandling: promhttp.ContinueOnError,
	}))
}
