package main

import (
	"context"
	"time"

	"github.com/effective-security/xlog"
	"tripcopilot/cache"
	"tripcopilot/config"
	"tripcopilot/database"
	"tripcopilot/planner"
	"tripcopilot/services"
)

const (
	dbConnectAttempts = 10
	dbConnectWait     = 2 * time.Second
)

// app is the wired dependency graph shared by every command.
type app struct {
	cfg     *config.Settings
	planner *planner.Planner
	critic  *planner.Critic

	// store is nil when persistence is disabled or unreachable.
	store *database.Store

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Settings, withDB bool) *app {
	a := &app{cfg: cfg}

	store := a.openCache(ctx)
	providers := services.NewProviders(cfg, store)
	catalog := planner.DefaultCatalog()
	a.planner = planner.New(providers, catalog)
	a.critic = planner.NewCritic(catalog, providers.Directions)

	if withDB && cfg.DatabaseEnabled() {
		db, err := database.Open(ctx, cfg.DSN(), dbConnectAttempts, dbConnectWait)
		if err != nil {
			logger.KV(xlog.ERROR, "status", "running_without_persistence", "err", err.Error())
		} else {
			a.store = db
			a.closers = append(a.closers, db.Close)
		}
	}
	return a
}

// openCache prefers Redis when configured and falls back to process memory.
func (a *app) openCache(ctx context.Context) cache.Store {
	if a.cfg.RedisURL == "" {
		return cache.NewMemoryStore()
	}
	client, err := cache.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		logger.KV(xlog.WARNING, "reason", "redis", "status", "using_memory_cache", "err", err.Error())
		return cache.NewMemoryStore()
	}
	a.closers = append(a.closers, client.Close)
	logger.KV(xlog.INFO, "cache", "redis", "prefix", a.cfg.RedisPrefix)
	return cache.NewRedisStore(client, a.cfg.RedisPrefix)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.KV(xlog.WARNING, "reason", "close", "err", err.Error())
		}
	}
}
