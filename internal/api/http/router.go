package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	RateLimit      config.RateLimitConfig
	// LimiterStorage holds rate limit counters; nil keeps them in memory.
	LimiterStorage fiber.Storage
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Get("/health", cfg.Health.Live)
	api.Get("/health/ready", cfg.Health.Ready)

	authenticate := cfg.AuthMiddleware.Handle
	limit := authRateLimiter(cfg.RateLimit, cfg.LimiterStorage)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", limit, cfg.Auth.Register)
	authGroup.Post("/login", limit, cfg.Auth.Login)
	authGroup.Get("/me", authenticate, cfg.Auth.Me)
	authGroup.Put("/profile", authenticate, cfg.Auth.UpdateProfile)
	authGroup.Post("/change-password", authenticate, cfg.Auth.ChangePassword)

	// No group-level auth: unmatched paths fall through to notFoundHandler.
	tickets := api.Group("/tickets")
	tickets.Post("/", authenticate, cfg.Tickets.CreateTicket)
	tickets.Get("/", authenticate, cfg.Tickets.ListTickets)
	tickets.Get("/:id", authenticate, cfg.Tickets.GetTicket)
	tickets.Put("/:id", authenticate, cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/responses", authenticate, cfg.Tickets.AddResponse)
	tickets.Post("/:id/attachments", authenticate, cfg.Tickets.AddAttachment)
	tickets.Get("/:id/history", authenticate, cfg.Tickets.History)
	tickets.Put("/:id/assign", authenticate, auth.Require(domain.ActionTicketAssign), cfg.Tickets.AssignTicket)
	tickets.Post("/:id/satisfaction", authenticate, cfg.Tickets.RateSatisfaction)
	tickets.Delete("/:id", authenticate, auth.Require(domain.ActionTicketDelete), cfg.Tickets.DeleteTicket)

	adminOnly := auth.Require(domain.ActionUserManage)
	users := api.Group("/users")
	users.Get("/stats/overview", authenticate, adminOnly, cfg.Users.Stats)
	users.Get("/support/staff", authenticate, auth.Require(domain.ActionStaffDirectory), cfg.Users.SupportStaff)
	users.Get("/", authenticate, adminOnly, cfg.Users.ListUsers)
	users.Get("/:id/tickets", authenticate, cfg.Users.UserTickets)
	users.Get("/:id", authenticate, adminOnly, cfg.Users.GetUser)
	users.Put("/:id", authenticate, adminOnly, cfg.Users.UpdateUser)
	users.Delete("/:id", authenticate, adminOnly, cfg.Users.DeleteUser)

	app.Use(notFoundHandler)
}
