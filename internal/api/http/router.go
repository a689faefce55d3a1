package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/http/handlers"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         *auth.Policy
}

// RoutePolicy declares the authorization table for every registered route.
// Order matters: the first matching rule wins and unmatched requests are
// denied, so new routes must be added here as well as in RegisterRoutes.
func RoutePolicy(ownership *auth.OwnershipResolver) *auth.Policy {
	return auth.NewPolicy(
		auth.Rule{Method: fiber.MethodGet, Pattern: "/health/live", Predicate: auth.Public()},
		auth.Rule{Method: fiber.MethodGet, Pattern: "/health/ready", Predicate: auth.Public()},
		auth.Rule{Method: fiber.MethodPost, Pattern: "/auth/register", Predicate: auth.Public()},
		auth.Rule{Method: fiber.MethodPost, Pattern: "/auth/login", Predicate: auth.Public()},
		auth.Rule{Method: fiber.MethodPost, Pattern: "/auth/refresh", Predicate: auth.Public()},
		auth.Rule{Method: fiber.MethodGet, Pattern: "/api/me", Predicate: auth.Authenticated()},
		auth.Rule{Method: fiber.MethodGet, Pattern: "/api/accounts", Predicate: auth.HasRole(domain.RoleAdmin)},
		auth.Rule{Method: fiber.MethodGet, Pattern: "/api/accounts/:id", Predicate: auth.OwnerOrRole(ownership, auth.PathParam("id"), domain.RoleAdmin)},
	)
}

// RegisterRoutes wires the interceptor, the policy and the HTTP routes. The
// auth middleware runs once per request, strictly before policy evaluation
// and every handler.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.AuthMiddleware.Handle)
	app.Use(cfg.Policy.Middleware())

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	api := app.Group("/api")
	api.Get("/me", cfg.Accounts.Me)
	api.Get("/accounts", cfg.Accounts.List)
	api.Get("/accounts/:id", cfg.Accounts.Get)
}
