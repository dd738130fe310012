// Package cache stores successful IP geolocation results for a bounded time.
package cache

import (
	"context"
	"time"

	"envgate-server/internal/modules/gateway/types"
)

type Cache interface {
	// Get returns ok=false on a miss or an expired entry.
	Get(ctx context.Context, ip string) (types.LocationInfo, bool, error)
	Set(ctx context.Context, ip string, loc types.LocationInfo, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (types.LocationInfo, bool, error) {
	return types.LocationInfo{}, false, nil
}

func (Nop) Set(context.Context, string, types.LocationInfo, time.Duration) error {
	return nil
}

func (Nop) Ping(context.Context) error {
	return nil
}
