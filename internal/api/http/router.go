package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/nillzand/ehsan-meals/internal/api/http/handlers"
	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Menus          *handlers.MenusHandler
	Orders         *handlers.OrdersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Everything but health and metrics lives
// under /api.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Post("/token", cfg.Users.Token)
	api.Post("/token/refresh", cfg.Users.Refresh)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/users/me", cfg.Users.Me)
	protected.Get("/schedules/my-menu", cfg.Menus.MySchedules)
	protected.Get("/schedules/:id/daily-menu", cfg.Menus.DailyMenu)
	protected.Get("/orders", cfg.Orders.List)

	canOrder := auth.RequireCapability(auth.CanPlaceOrders)
	protected.Post("/orders", canOrder, cfg.Orders.Create)
	protected.Delete("/orders/:id", canOrder, cfg.Orders.Cancel)
}
