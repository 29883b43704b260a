package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/campus-grievance-api/internal/access"
	"github.com/noah-isme/campus-grievance-api/internal/config"
	"github.com/noah-isme/campus-grievance-api/internal/handler"
	"github.com/noah-isme/campus-grievance-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler          *handler.AuthHandler
	ComplaintHandler     *handler.ComplaintHandler
	DashboardHandler     *handler.DashboardHandler
	AttachmentHandler    *handler.AttachmentHandler
	AdminUserHandler     *handler.AdminUserHandler
	AdminActivityHandler *handler.AdminActivityHandler
	HealthProbes         map[string]handler.HealthProbe
	JWTMiddleware        fiber.Handler
	IdentityMiddleware   fiber.Handler
	LoginRateLimit       fiber.Handler
	Metrics              fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics)
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	protected := make([]fiber.Handler, 0, 2)
	if deps.JWTMiddleware != nil {
		protected = append(protected, deps.JWTMiddleware)
	}
	if deps.IdentityMiddleware != nil {
		protected = append(protected, deps.IdentityMiddleware)
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), protected, deps.LoginRateLimit)
	}

	if deps.ComplaintHandler != nil {
		deps.ComplaintHandler.Register(api.Group("/complaints", protected...))
	}

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(api.Group("/dashboard", protected...))
	}

	if deps.AttachmentHandler != nil {
		deps.AttachmentHandler.Register(api.Group("/attachments", protected...))
	}

	adminChain := append(append([]fiber.Handler{}, protected...), middleware.GuardRoute(access.PathAdminPanel))
	admin := api.Group("/admin", adminChain...)
	if deps.AdminUserHandler != nil {
		deps.AdminUserHandler.Register(admin.Group("/users"))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activity"))
	}
}
