package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/nillzand/ehsan-meals/internal/api/http"
	"github.com/nillzand/ehsan-meals/internal/api/http/handlers"
	"github.com/nillzand/ehsan-meals/internal/config"
	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/observability"
	"github.com/nillzand/ehsan-meals/internal/persistence"
	"github.com/nillzand/ehsan-meals/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repository.NewMemory()
	if cfg.DevServer.Seed {
		if err := repository.Seed(ctx, store, domain.DateOf(time.Now()), cfg.DevServer.BcryptCost); err != nil {
			logger.Fatal("failed to seed data", zap.Error(err))
		}
		for _, account := range repository.SeedAccounts {
			logger.Info("seeded account", zap.String("username", account.Username), zap.String("role", string(account.Role)))
		}
	}

	pingers := map[string]handlers.Pinger{}
	blacklist := repository.NewMemoryBlacklist()
	if cfg.DevServer.TokenBlacklist == "redis" {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		blacklist = repository.NewRedisBlacklist(redis.Client, cfg.App.Name+":refresh:")
		pingers["redis"] = redis
	}

	app := httptransport.NewServer(httptransport.ServerDependencies{
		Config:    cfg,
		Store:     store,
		Blacklist: blacklist,
		Metrics:   observability.NewMetrics(),
		Logger:    logger,
		Pingers:   pingers,
	})

	go func() {
		logger.Info("dev backend listening", zap.String("addr", cfg.DevServer.Addr()))
		if err := app.Listen(cfg.DevServer.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
