package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"envgate-server/internal/config"
	"envgate-server/internal/db"
	"envgate-server/internal/migrate"
	"envgate-server/internal/modules/geo/cache"
)

// purgeInterval is how often expired SQLite cache rows are deleted.
const purgeInterval = 10 * time.Minute

type locationCache struct {
	cache.Cache
	close func() error
	purge func(ctx context.Context) (int64, error)
}

// openLocationCache builds the backend selected by LOCATION_CACHE. Profiles
// without enrichment never look anything up, so they get no backend at all.
func openLocationCache(ctx context.Context, cfg config.Config) (*locationCache, error) {
	if !cfg.Enrichment() {
		return nopLocationCache(), nil
	}

	switch cfg.LocationCache {
	case config.CacheSQLite:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		applied, err := migrate.Run(ctx, conn)
		if err != nil {
			_ = db.Close(conn)
			return nil, err
		}
		slog.Info("database ready", "path", cfg.SQLitePath, "migrations_applied", applied)
		c := cache.NewSQLiteCache(conn)
		return &locationCache{
			Cache: c,
			close: func() error { return db.Close(conn) },
			purge: c.Purge,
		}, nil

	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		c := cache.NewRedisCache(client)
		if err := c.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		slog.Info("redis ready", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return &locationCache{Cache: c, close: client.Close}, nil

	case config.CacheOff:
		return nopLocationCache(), nil
	}
	return nil, fmt.Errorf("unknown location cache %q", cfg.LocationCache)
}

func nopLocationCache() *locationCache {
	return &locationCache{Cache: cache.Nop{}, close: func() error { return nil }}
}

// runPurger deletes expired rows until ctx is done. Redis expires keys itself.
func runPurger(ctx context.Context, purge func(ctx context.Context) (int64, error), every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purge(ctx)
			if err != nil {
				slog.Warn("location cache purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("location cache purged", "rows", n)
			}
		}
	}
}
