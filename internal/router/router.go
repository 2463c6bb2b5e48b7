package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grader/internal/config"
	"github.com/noah-isme/gema-grader/internal/handler"
	"github.com/noah-isme/gema-grader/internal/middleware"
	"github.com/noah-isme/gema-grader/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler   *handler.GradingHandler
	ArchiveHandler   *handler.ArchiveHandler
	SettingsHandler  *handler.SettingsHandler
	AnalyticsHandler *handler.AnalyticsHandler
	EventsHandler    *handler.EventsHandler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil. Role checks only apply when
	// tokens are verified.
	noop := func(c *fiber.Ctx) error { return c.Next() }
	jwtMiddleware := deps.JWTMiddleware
	manage := fiber.Handler(noop)
	if jwtMiddleware == nil {
		jwtMiddleware = noop
	} else {
		manage = middleware.RequireRole(middleware.RoleTeacher, middleware.RoleAdmin)
	}

	if deps.GradingHandler != nil {
		grading := api.Group("/grading", jwtMiddleware)
		deps.GradingHandler.Register(grading, middleware.RateLimit("grading", cfg.GradingRateLimit, time.Minute))
	}

	if deps.ArchiveHandler != nil {
		archive := api.Group("/archive", jwtMiddleware)
		deps.ArchiveHandler.Register(archive, manage)
	}

	if deps.SettingsHandler != nil {
		settings := api.Group("/settings", jwtMiddleware)
		deps.SettingsHandler.Register(settings, manage)
	}

	if deps.AnalyticsHandler != nil {
		analytics := api.Group("/analytics", jwtMiddleware)
		deps.AnalyticsHandler.Register(analytics)
	}

	if deps.EventsHandler != nil {
		events := api.Group("/events", jwtMiddleware)
		deps.EventsHandler.Register(events)
	}
}
