package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/moderation-api/internal/config"
	"github.com/noah-isme/moderation-api/internal/handler"
	"github.com/noah-isme/moderation-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	UserHandler       *handler.UserHandler
	AssignmentHandler *handler.AssignmentHandler
	RubricHandler     *handler.RubricHandler
	MarkingHandler    *handler.MarkingHandler
	StatisticsHandler *handler.StatisticsHandler
	ModerationHandler *handler.ModerationHandler
	ActivityHandler   *handler.ActivityHandler
	HealthProbes      map[string]handler.HealthProbe
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users", jwtMiddleware))
		deps.UserHandler.RegisterMarkerRoutes(api.Group("/markers", jwtMiddleware))
	}

	assignments := api.Group("/assignments", jwtMiddleware)
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(assignments)
	}
	if deps.MarkingHandler != nil {
		deps.MarkingHandler.RegisterAssignmentRoutes(assignments)
	}
	if deps.StatisticsHandler != nil {
		deps.StatisticsHandler.RegisterAssignmentRoutes(assignments)
	}

	if deps.RubricHandler != nil {
		deps.RubricHandler.Register(api.Group("/rubrics", jwtMiddleware))
		deps.RubricHandler.RegisterAssignmentRoutes(assignments)
	}

	if deps.ModerationHandler != nil {
		deps.ModerationHandler.Register(api.Group("/moderations", jwtMiddleware))
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activity", jwtMiddleware))
	}
}
