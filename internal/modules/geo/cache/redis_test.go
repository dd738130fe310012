package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCache(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache(client)
}

func TestRedisCache_RoundTrip(t *testing.T) {
	_, c := setupRedisCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "192.0.2.50")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "192.0.2.50", sampleLocation(), time.Hour))

	got, ok, err := c.Get(ctx, "192.0.2.50")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleLocation(), got)
}

func TestRedisCache_TTL(t *testing.T) {
	mr, c := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "192.0.2.51", sampleLocation(), 30*time.Second))
	assert.Equal(t, 30*time.Second, mr.TTL(redisKeyPrefix+"192.0.2.51"))

	mr.FastForward(31 * time.Second)

	_, ok, err := c.Get(ctx, "192.0.2.51")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_CorruptValue(t *testing.T) {
	mr, c := setupRedisCache(t)
	require.NoError(t, mr.Set(redisKeyPrefix+"192.0.2.52", "garbage"))

	_, ok, err := c.Get(context.Background(), "192.0.2.52")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_PingAndOutage(t *testing.T) {
	mr, c := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	mr.Close()
	assert.Error(t, c.Ping(ctx))
	_, _, err := c.Get(ctx, "192.0.2.53")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "192.0.2.1", sampleLocation(), time.Hour))
	_, ok, err := c.Get(ctx, "192.0.2.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Ping(ctx))
}
