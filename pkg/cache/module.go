package cache

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/autumndb/autumndb/domain/contracts"
	"github.com/autumndb/autumndb/internal/config"
)

// Module provides the contract cache and starts its eviction sweep.
var Module = fx.Module("cache",
	fx.Provide(NewFromConfig),
	fx.Invoke(registerLifecycle),
)

// NewFromConfig builds a Cache using the application's CacheConfig.
func NewFromConfig(store contracts.Store, cfg *config.Config, log *slog.Logger) *Cache {
	return New(store, Config{MaxEntries: cfg.Cache.MaxEntries, TTL: cfg.Cache.TTL}, log)
}

func registerLifecycle(lc fx.Lifecycle, c *Cache, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return c.Start(cfg.Cache.SweepSchedule)
		},
		OnStop: func(ctx context.Context) error {
			c.Stop()
			return nil
		},
	})
}
