package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/trombinoscope-api/internal/config"
	"github.com/noah-isme/trombinoscope-api/internal/handler"
	"github.com/noah-isme/trombinoscope-api/internal/middleware"
	"github.com/noah-isme/trombinoscope-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	StoreName      string
	StudentHandler *handler.StudentHandler
	ModuleHandler  *handler.ModuleHandler
	ProjectHandler *handler.ProjectHandler
	StatsHandler   *handler.StatsHandler
	ExportHandler  *handler.ExportHandler
	RosterHandler  *handler.RosterHandler
	SeedHandler    *handler.SeedHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group(middleware.APIPrefix, func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.StoreName))

	writes := middleware.WriteAccess(cfg.JWTSecret, middleware.RoleTeacher, middleware.RoleAdmin)

	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(api.Group("/students", writes))
	}
	if deps.ModuleHandler != nil {
		deps.ModuleHandler.Register(api.Group("/modules", writes))
	}
	if deps.ProjectHandler != nil {
		deps.ProjectHandler.Register(api.Group("/projects", writes))
	}
	if deps.StatsHandler != nil {
		deps.StatsHandler.Register(api.Group("/stats"))
	}

	// Exports are CPU heavy; throttle per caller.
	if deps.ExportHandler != nil {
		exports := api.Group("/export", middleware.RateLimit("export", cfg.ExportRateLimit, cfg.ExportRateWindow))
		deps.ExportHandler.Register(exports)
	}

	if deps.RosterHandler != nil {
		deps.RosterHandler.Register(api.Group("/roster"))
	}

	// Seeding tools carry their own token guard; with JWT enabled the caller
	// must also be an admin.
	if deps.SeedHandler != nil {
		admin := api.Group("/admin")
		if cfg.JWTEnabled() {
			admin = api.Group("/admin", middleware.JWTProtected(cfg.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
		}
		deps.SeedHandler.Register(admin)
	}
}
