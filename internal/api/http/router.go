package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-tracker/internal/api/http/handlers"
	"github.com/spec-kit/support-tracker/internal/auth"
	"github.com/spec-kit/support-tracker/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Events         *handlers.EventsHandler
	Records        *handlers.RecordsHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.Middleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", metricsHandler(cfg.Metrics))

	app.Post("/auth/token", cfg.Auth.IssueToken)

	app.Post("/events", cfg.AuthMiddleware.RequireIngestKey, cfg.Events.ApplyEvent)

	records := app.Group("/records", cfg.AuthMiddleware.RequireReportingToken)
	records.Get("/", cfg.Records.ListRecords)
	records.Get("/:thread_id", cfg.Records.GetRecord)
}

func metricsHandler(metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if metrics == nil {
			return c.JSON(fiber.Map{})
		}
		events, requests, errs := metrics.Snapshot()
		return c.JSON(fiber.Map{
			"events":   events,
			"requests": requests,
			"errors":   errs,
		})
	}
}
