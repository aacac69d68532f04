package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/backend"
	"github.com/nillzand/ehsan-meals/internal/config"
	"github.com/nillzand/ehsan-meals/internal/events"
	"github.com/nillzand/ehsan-meals/internal/gateway"
	"github.com/nillzand/ehsan-meals/internal/observability"
	"github.com/nillzand/ehsan-meals/internal/ordering"
	"github.com/nillzand/ehsan-meals/internal/persistence"
	"github.com/nillzand/ehsan-meals/internal/session"
	"github.com/nillzand/ehsan-meals/internal/worker"
)

// App is the assembled client: session, gateway and ordering rules.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Session  *session.Manager
	Gateway  *gateway.Gateway
	Backend  *backend.Client
	Ordering *ordering.Service
	Audit    *worker.AuditLog

	redis    *persistence.Redis
	postgres *persistence.Postgres
}

// New wires the client from cfg. The session is restored from the configured
// store before New returns.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	persister, err := a.persister(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	dispatcher := events.NewInMemoryDispatcher()
	a.Audit = worker.NewAuditLog(logger.Named("audit"), 0)
	worker.StartAuditWorker(dispatcher, a.Audit)

	store := session.NewStore(ctx, persister, logger)
	authAPI := backend.NewAuthAPI(cfg.API.BaseURL, nil, cfg.API.Timeout(), logger)
	a.Session = session.NewManager(session.ManagerDependencies{
		Store:         store,
		Authenticator: authAPI,
		Dispatcher:    dispatcher,
		Metrics:       a.Metrics,
		Logger:        logger,
	})

	a.Gateway, err = gateway.New(gateway.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout(),
		RateLimit: cfg.API.RateLimitRPS,
		RateBurst: cfg.API.RateBurst,
	}, gateway.Dependencies{
		Session: a.Session,
		Metrics: a.Metrics,
		Logger:  logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Backend = backend.NewClient(a.Gateway)
	a.Ordering = ordering.NewService(ordering.ServiceDependencies{
		Backend:    a.Backend,
		Session:    a.Session,
		Engine:     ordering.NewEngine(cfg.Ordering.LeadDays, nil),
		Dispatcher: dispatcher,
		Metrics:    a.Metrics,
		Logger:     logger,
	})
	return a, nil
}

func (a *App) persister(ctx context.Context) (session.Persister, error) {
	cfg := a.Config
	key := cfg.Session.StoreKey(cfg.App.Name)

	switch cfg.Session.Store {
	case config.SessionStoreMemory:
		return session.NewMemoryPersister(), nil
	case config.SessionStoreFile:
		p := session.NewFilePersister(cfg.Session.FileDir, key)
		a.Logger.Debug("session persisted to file", zap.String("path", p.Path()))
		return p, nil
	case config.SessionStoreRedis:
		a.redis = persistence.NewRedis(ctx, cfg.Redis, a.Logger)
		return session.NewRedisPersister(a.redis.Client, key, cfg.Session.RedisTTL()), nil
	case config.SessionStorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.postgres = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, a.Logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return session.NewPostgresPersister(pg.Pool, key), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

// Close releases the store connections.
func (a *App) Close() {
	a.redis.Close()
	a.postgres.Close()
}
