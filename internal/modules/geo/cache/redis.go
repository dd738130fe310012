package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"envgate-server/internal/modules/gateway/types"
)

const redisKeyPrefix = "envgate:location:"

// RedisCache relies on key expiry for TTL handling.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, ip string) (types.LocationInfo, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+ip).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.LocationInfo{}, false, nil
	}
	if err != nil {
		return types.LocationInfo{}, false, fmt.Errorf("redis get %q: %w", ip, err)
	}
	var loc types.LocationInfo
	if err := json.Unmarshal(data, &loc); err != nil {
		return types.LocationInfo{}, false, fmt.Errorf("decode location %q: %w", ip, err)
	}
	return loc, true, nil
}

func (c *RedisCache) Set(ctx context.Context, ip string, loc types.LocationInfo, ttl time.Duration) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+ip, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", ip, err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
