package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketing-system/internal/api/http/handlers"
	"github.com/spec-kit/ticketing-system/internal/auth"
	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/service"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Profiles       *handlers.ProfileHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/register", cfg.Auth.Register)
	app.Get("/verify-email/:token", cfg.Auth.VerifyEmail)
	app.Post("/login", cfg.Auth.Login)

	authenticated := cfg.AuthMiddleware.Handle
	app.Post("/logout", authenticated, cfg.Auth.Logout)
	app.Get("/profile", authenticated, cfg.Profiles.Me)
	app.Get("/profiles/staff", authenticated, auth.RequireRole(service.MsgAssignForbidden, domain.RoleAdmin), cfg.Profiles.ListStaff)

	tickets := app.Group("/tickets", authenticated)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("/create", cfg.Tickets.CreateTicket)
	tickets.Get("/:ticket_id", cfg.Tickets.GetTicket)
	tickets.Get("/:ticket_id/file", cfg.Tickets.DownloadFile)
	tickets.Post("/:ticket_id/assign", auth.Require(service.MsgAssignForbidden, domain.Role.CanAssign), cfg.Tickets.AssignTicket)
	tickets.Post("/:ticket_id/close", cfg.Tickets.CloseTicket)
}
