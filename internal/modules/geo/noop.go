package geo

import (
	"context"

	"envgate-server/internal/modules/gateway/types"
)

// NoopEnricher disables enrichment.
type NoopEnricher struct{}

func (NoopEnricher) Enrich(context.Context, string) *types.LocationInfo {
	return nil
}
