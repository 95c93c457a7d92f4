// Package app wires configuration, the store adapter, the cache layer and
// the services into a runnable engine.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blackflag/requestbot/internal/adapter/postgres"
	duplicaterepo "github.com/blackflag/requestbot/internal/adapter/postgres/duplicate"
	ratingrepo "github.com/blackflag/requestbot/internal/adapter/postgres/rating"
	requestrepo "github.com/blackflag/requestbot/internal/adapter/postgres/request"
	userrepo "github.com/blackflag/requestbot/internal/adapter/postgres/user"
	"github.com/blackflag/requestbot/internal/cache"
	"github.com/blackflag/requestbot/internal/config"
	"github.com/blackflag/requestbot/internal/service"
	"github.com/blackflag/requestbot/internal/service/classify"
	"github.com/blackflag/requestbot/internal/service/dedup"
	"github.com/blackflag/requestbot/internal/service/identity"
	"github.com/blackflag/requestbot/internal/service/lifecycle"
	"github.com/blackflag/requestbot/internal/service/requests"
)

// App owns the process-lifetime resources behind the engine.
type App struct {
	Engine *service.Engine

	log   *slog.Logger
	db    *postgres.DB
	cache *cache.Layer
}

// New builds the full dependency graph. Migrations run first when
// configured; the pool and cache are fail-fast at startup (except redis,
// which degrades instead of failing).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(cfg.Database.DSN); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	cacheLayer, err := cache.New(ctx, cfg.Cache, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build cache layer: %w", err)
	}

	txManager := postgres.NewTxManager(db)
	users := userrepo.New(db)
	reqs := requestrepo.New(db)
	links := duplicaterepo.New(db)
	ratings := ratingrepo.New(db)

	identitySvc := identity.NewService(logger, users, cacheLayer, cfg.Cache.UserTTL, cfg.Reputation)
	lifecycleSvc := lifecycle.NewManager(logger, reqs)
	requestsSvc := requests.NewService(logger, requests.Deps{
		Identity:   identitySvc,
		Classifier: classify.NewClassifier(),
		Dedup:      dedup.NewEngine(cfg.Dedup),
		Requests:   reqs,
		Users:      users,
		Links:      links,
		Ratings:    ratings,
		Tx:         txManager,
		Cache:      cacheLayer,
		DedupCfg:   cfg.Dedup,
		RequestTTL: cfg.Cache.RequestTTL,
	})

	engine := service.NewEngine(logger, service.Deps{
		Identity:  identitySvc,
		Requests:  requestsSvc,
		Lifecycle: lifecycleSvc,
		Links:     links,
		Users:     users,
		Tx:        txManager,
		Admins:    cfg.Admin,
	})

	logger.Info("engine ready",
		"cache_backend", cfg.Cache.Backend,
		"pool_max_conns", cfg.Database.MaxConns,
		"admins", len(cfg.Admin.IDs))

	return &App{Engine: engine, log: logger, db: db, cache: cacheLayer}, nil
}

// Close releases the cache and the pool, in that order.
func (a *App) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.Warn("close cache", "error", err)
	}
	a.db.Close()
	a.log.Info("shutdown complete")
}
