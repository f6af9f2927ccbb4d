package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Calendars      *handlers.CalendarsHandler
	Templates      *handlers.TemplatesHandler
	Sla            *handlers.SlaHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	protected.Post("/calendars", cfg.Calendars.Create)
	protected.Put("/calendars/:id", cfg.Calendars.Update)
	protected.Get("/calendars/:id", cfg.Calendars.Get)

	protected.Post("/templates", cfg.Templates.Create)
	protected.Get("/templates/:id", cfg.Templates.Get)

	protected.Post("/tickets/:id/sla", cfg.Sla.ComputeInitial)
	protected.Post("/tickets/:id/sla/recalculate", cfg.Sla.Recalculate)
	protected.Get("/tickets/:id/sla", cfg.Sla.Status)
	protected.Get("/tickets/:id/sla/history", cfg.Sla.History)
}
