package app

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"envgate-server/internal/config"
	"envgate-server/internal/modules/gateway/types"
	"envgate-server/internal/modules/geo/cache"
)

func TestOpenLocationCache_Off(t *testing.T) {
	c, err := openLocationCache(context.Background(), config.Config{Profile: config.ProfileFull, LocationCache: config.CacheOff})
	if err != nil {
		t.Fatalf("openLocationCache() error = %v", err)
	}
	if c.purge != nil {
		t.Errorf("off backend has a purger")
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
	if err := c.close(); err != nil {
		t.Errorf("close() = %v", err)
	}
}

func TestOpenLocationCache_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		Profile:            config.ProfileFull,
		LocationCache:      config.CacheSQLite,
		SQLiteDriver:       "sqlite3",
		SQLitePath:         filepath.Join(t.TempDir(), "envgate.db"),
		SQLiteMaxOpenConns: 1,
	}

	c, err := openLocationCache(ctx, cfg)
	if err != nil {
		t.Fatalf("openLocationCache() error = %v", err)
	}
	t.Cleanup(func() { _ = c.close() })

	if err := c.Set(ctx, "192.0.2.1", types.LocationInfo{City: "Bergen"}, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	loc, ok, err := c.Get(ctx, "192.0.2.1")
	if err != nil || !ok || loc.City != "Bergen" {
		t.Fatalf("Get() = %+v, %v, %v", loc, ok, err)
	}
	if c.purge == nil {
		t.Fatal("sqlite backend has no purger")
	}
	if _, err := c.purge(ctx); err != nil {
		t.Errorf("purge() error = %v", err)
	}
}

func TestOpenLocationCache_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{Profile: config.ProfileFull, LocationCache: config.CacheRedis, RedisAddr: mr.Addr()}

	c, err := openLocationCache(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openLocationCache() error = %v", err)
	}
	t.Cleanup(func() { _ = c.close() })

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestOpenLocationCache_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Config{Profile: config.ProfileFull, LocationCache: config.CacheRedis, RedisAddr: addr}
	if _, err := openLocationCache(context.Background(), cfg); err == nil {
		t.Fatal("openLocationCache() error = nil, want non-nil")
	}
}

func TestOpenLocationCache_Unknown(t *testing.T) {
	if _, err := openLocationCache(context.Background(), config.Config{Profile: config.ProfileFull, LocationCache: "memcached"}); err == nil {
		t.Fatal("openLocationCache() error = nil, want non-nil")
	}
}

func TestOpenLocationCache_BasicProfileSkipsBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sqlite")
	cfg := config.Config{
		Profile:       config.ProfileBasic,
		LocationCache: config.CacheSQLite,
		SQLiteDriver:  "sqlite3",
		SQLitePath:    filepath.Join(dir, "envgate.db"),
		RedisAddr:     "127.0.0.1:1",
	}

	c, err := openLocationCache(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openLocationCache() error = %v", err)
	}
	if _, ok := c.Cache.(cache.Nop); !ok {
		t.Errorf("Cache = %T, want cache.Nop", c.Cache)
	}
	if c.purge != nil {
		t.Errorf("basic profile has a purger")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("sqlite dir created for basic profile: %v", err)
	}

	cfg.LocationCache = config.CacheRedis
	if _, err := openLocationCache(context.Background(), cfg); err != nil {
		t.Errorf("redis backend dialled for basic profile: %v", err)
	}
}

func TestRunPurger_StopsWithContext(t *testing.T) {
	var calls atomic.Int32
	purge := func(context.Context) (int64, error) {
		calls.Add(1)
		return 1, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runPurger(ctx, purge, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runPurger did not return after cancel")
	}
	if calls.Load() < 2 {
		t.Errorf("purge calls = %d, want at least 2", calls.Load())
	}
}
