package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	Customer       *handlers.CustomerHandler
	Agent          *handlers.AgentHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        fiber.Handler
}

// RegisterRoutes wires HTTP routes. Each area group admits only its own
// role; the desk repeats the check per operation.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.Logout)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/tickets", cfg.Admin.ListTickets)
	admin.Get("/tickets/:id", cfg.Admin.GetTicket)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Post("/users", cfg.Admin.CreateUser)

	customer := app.Group("/customer", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleCustomer))
	customer.Get("/tickets", cfg.Customer.ListTickets)
	customer.Get("/tickets/:id", cfg.Customer.GetTicket)
	customer.Post("/tickets", cfg.Customer.CreateTicket)
	customer.Delete("/tickets/:id", cfg.Customer.DeleteTicket)

	agent := app.Group("/agent", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleSupportAgent))
	agent.Get("/tickets", cfg.Agent.ListTickets)
	agent.Get("/tickets/:id", cfg.Agent.GetTicket)
	agent.Put("/tickets/:id/status", cfg.Agent.UpdateStatus)
}
