package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/api/http/handlers"
	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/config"
	"github.com/nillzand/ehsan-meals/internal/observability"
	"github.com/nillzand/ehsan-meals/internal/ordering"
	"github.com/nillzand/ehsan-meals/internal/repository"
	"github.com/nillzand/ehsan-meals/internal/service"
)

// ServerDependencies bundles what the dev backend is assembled from.
type ServerDependencies struct {
	Config    *config.Config
	Store     *repository.Memory
	Blacklist repository.TokenBlacklist
	Metrics   *observability.Metrics
	Logger    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// Pingers are checked by /health/ready.
	Pingers map[string]handlers.Pinger
}

// NewServer assembles the dev backend fiber app.
func NewServer(deps ServerDependencies) *fiber.App {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	tokens := auth.NewTokenManager(cfg.DevServer.JWTSecret, cfg.DevServer.AccessTokenTTLMinutes, cfg.DevServer.RefreshTTLMinutes).WithClock(now)
	authService := service.NewAuthService(cfg.DevServer, service.AuthDependencies{
		UserRepo:  deps.Store.Users(),
		Blacklist: deps.Blacklist,
		Tokens:    tokens,
		Logger:    logger,
	})
	orderService := service.NewOrderService(service.OrderDependencies{
		UserRepo:     deps.Store.Users(),
		ScheduleRepo: deps.Store.Schedules(),
		OrderRepo:    deps.Store.Orders(),
		Engine:       ordering.NewEngine(cfg.Ordering.LeadDays, now),
		Now:          now,
		Logger:       logger,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	RegisterMiddlewares(app, logger, deps.Metrics, cfg.DevServer.RequestTimeout())
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps.Pingers),
		Users:          handlers.NewUsersHandler(authService),
		Menus:          handlers.NewMenusHandler(service.NewMenuService(deps.Store.Schedules())),
		Orders:         handlers.NewOrdersHandler(orderService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, deps.Store.Users()),
		Metrics:        deps.Metrics,
	})
	return app
}
