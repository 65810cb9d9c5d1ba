// Package app assembles the settlement components from configuration. Both
// binaries build the same graph; only what they run on top differs.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/albapepper/scoracle-games/internal/assign"
	"github.com/albapepper/scoracle-games/internal/cache"
	"github.com/albapepper/scoracle-games/internal/config"
	"github.com/albapepper/scoracle-games/internal/db"
	"github.com/albapepper/scoracle-games/internal/feed"
	"github.com/albapepper/scoracle-games/internal/lease"
	"github.com/albapepper/scoracle-games/internal/lifecycle"
	"github.com/albapepper/scoracle-games/internal/notify"
	"github.com/albapepper/scoracle-games/internal/provider/sportmonks"
	"github.com/albapepper/scoracle-games/internal/rules"
	"github.com/albapepper/scoracle-games/internal/settle"
	"github.com/albapepper/scoracle-games/internal/store/postgres"
)

// App is the wired component graph.
type App struct {
	Pool      *db.Pool
	Store     *postgres.Store
	Cache     *cache.Cache
	Feed      *feed.Feed
	Rules     *rules.Registry
	Resolver  *assign.Resolver
	Lifecycle *lifecycle.Manager
	Outbox    *notify.Outbox
	Engine    *settle.Engine

	closers []io.Closer
}

// Build wires everything on top of an open pool. Close releases what Build
// opened; the pool stays with the caller.
func Build(ctx context.Context, cfg *config.Config, pool *db.Pool, logger *slog.Logger) (*App, error) {
	if cfg.SportMonksAPIToken == "" {
		return nil, fmt.Errorf("SPORTMONKS_API_TOKEN is required")
	}

	registry, err := rules.LoadRegistry(cfg.GameRulesFile)
	if err != nil {
		return nil, err
	}

	a := &App{
		Pool:  pool,
		Store: postgres.New(pool),
		Cache: cache.New(cfg.CacheEnabled),
		Rules: registry,
	}

	client := sportmonks.NewClient(cfg.SportMonksAPIToken, cfg.SportMonksRequestsPerMinute, logger)
	a.Feed = feed.New(sportmonks.NewFootballSource(client, logger), a.Cache, cfg.FeedTimeout)

	a.Resolver = assign.New(a.Store, registry, nil)
	a.Lifecycle = lifecycle.NewManager(a.Store, a.Feed)
	a.Outbox = notify.NewOutbox(pool)

	locker, err := a.locker(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.Engine = settle.New(settle.Deps{
		Store:    a.Store,
		Feed:     a.Feed,
		Assigner: a.Resolver,
		Rules:    registry,
		Locker:   locker,
		Sink:     a.Outbox,
	}, settle.Config{
		LeaseTTL:     cfg.LeaseTTL,
		StoreTimeout: cfg.StoreTimeout,
	})

	logger.Info("Settlement engine ready",
		"game_types", registry.Slugs(),
		"lease_backend", cfg.LeaseBackend,
		"lease_ttl", cfg.LeaseTTL)
	return a, nil
}

func (a *App) locker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (lease.Locker, error) {
	switch cfg.LeaseBackend {
	case config.LeaseRedis:
		client, err := lease.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		logger.Info("Redis lease backend connected", "addr", cfg.RedisAddr)
		return lease.NewRedis(client, "settle:"), nil
	case config.LeaseMemory:
		if cfg.IsProduction() {
			return nil, fmt.Errorf("LEASE_BACKEND=memory cannot guard settlement across processes in production")
		}
		logger.Warn("In-process lease backend; run a single settling process")
		return lease.NewMemory(), nil
	default:
		return lease.NewPostgres(a.Pool), nil
	}
}

// Close releases connections opened by Build.
func (a *App) Close() {
	for _, c := range a.closers {
		c.Close()
	}
}
