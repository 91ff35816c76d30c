package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/codefinder/internal/api/http/handlers"
	"github.com/spec-kit/codefinder/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Searches       *handlers.SearchesHandler
	Inbox          *handlers.InboxHandler
	AuthMiddleware fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)

	searches := app.Group("/searches", cfg.AuthMiddleware, auth.RequireUser())
	searches.Post("/", cfg.Searches.Create)
	searches.Get("/", cfg.Searches.List)
	searches.Get("/limit", cfg.Searches.Limit)
	searches.Get("/:id/results", cfg.Searches.Results)

	inbox := app.Group("/inbox", cfg.AuthMiddleware, auth.RequireUser())
	inbox.Get("/", cfg.Inbox.List)
	inbox.Post("/:id/read", cfg.Inbox.MarkRead)
}
