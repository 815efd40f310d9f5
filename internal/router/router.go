package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ecolearn/ecolearn-api/internal/config"
	"github.com/ecolearn/ecolearn-api/internal/handler"
	"github.com/ecolearn/ecolearn-api/internal/middleware"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	ClassHandler        *handler.ClassHandler
	StudentHandler      *handler.StudentHandler
	AssignmentHandler   *handler.AssignmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	BadgeHandler        *handler.BadgeHandler
	DashboardHandler    *handler.DashboardHandler
	NotificationHandler *handler.NotificationHandler
	ActivityHandler     *handler.AdminActivityHandler
	Health              handler.HealthDependencies
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Health))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	admin := middleware.RequireRole(models.RoleAdmin)

	if deps.AuthHandler != nil {
		authGroup := api.Group("/auth")
		deps.AuthHandler.RegisterPublic(authGroup.Group("", middleware.RateLimit("auth", cfg.RateLimitMax, cfg.RateLimitWindow)))
		deps.AuthHandler.RegisterProtected(authGroup.Group("", jwtMiddleware))
	}

	// Groups with an empty prefix install their middleware for every later
	// route under /api/v1, so the public routes above must stay registered first.
	protected := api.Group("", jwtMiddleware)

	adminGroup := protected.Group("/admin", admin)
	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterAdmin(adminGroup)
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(adminGroup)
	}

	if deps.ClassHandler != nil {
		deps.ClassHandler.Register(protected.Group("/classes"))
	}

	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(protected.Group("/students"))
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(protected.Group("/assignments"))
		deps.AssignmentHandler.RegisterCompat(protected)
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(protected.Group("/submissions"))
		deps.SubmissionHandler.RegisterCompat(protected)
	}

	if deps.BadgeHandler != nil {
		deps.BadgeHandler.Register(protected.Group("/badges"))
	}

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(protected)
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(protected.Group("/notifications"))
	}
}
