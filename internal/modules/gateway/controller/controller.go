package controller

import (
	"context"
	"net/http"

	"envgate-server/internal/modules/gateway/service"
	"envgate-server/internal/modules/gateway/types"
)

type Ingester interface {
	Ingest(ctx context.Context, body []byte, meta service.Meta) (types.Envelope, error)
}

type LatestReader interface {
	Get() (types.Envelope, bool)
}

type Options struct {
	// ShowLatest serves the latest envelope at / instead of Greeting.
	ShowLatest        bool
	Greeting          string
	TrustProxyHeaders bool
}

type GatewayController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type gatewayControllerImpl struct {
	ingester Ingester
	latest   LatestReader
	enricher service.Enricher
	opts     Options
}

// NewGatewayController wires the HTTP surface. enricher may be nil, in which
// case /location is not registered.
func NewGatewayController(ingester Ingester, latest LatestReader, enricher service.Enricher, opts Options) GatewayController {
	return &gatewayControllerImpl{ingester: ingester, latest: latest, enricher: enricher, opts: opts}
}

func (c *gatewayControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleRoot)
	mux.HandleFunc("POST /data", c.handleData)
	if c.enricher != nil {
		mux.HandleFunc("GET /location", c.handleLocation)
	}
}
