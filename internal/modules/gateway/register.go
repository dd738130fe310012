package gateway

import (
	"log/slog"
	"net/http"

	"envgate-server/internal/config"
	"envgate-server/internal/modules/gateway/controller"
	"envgate-server/internal/modules/gateway/service"
	"envgate-server/internal/modules/gateway/store"
	"envgate-server/internal/modules/geo"
)

// RegisterFeature builds the ingestion service for cfg's profile, mounts its
// routes on mux and returns the service so other transports can feed it.
// The basic profile always uses the no-op enricher and has no /location route.
func RegisterFeature(mux *http.ServeMux, cfg config.Config, enricher service.Enricher, logger *slog.Logger) *service.Service {
	lookup := enricher
	if !cfg.Enrichment() {
		enricher = geo.NoopEnricher{}
		lookup = nil
	}
	latest := store.NewLatest()
	svc := service.NewService(latest, enricher, service.Options{Strict: cfg.Profile == config.ProfileFull}, logger)
	gatewayController := controller.NewGatewayController(svc, latest, lookup, controller.Options{
		ShowLatest:        cfg.Profile == config.ProfileFull,
		Greeting:          cfg.Greeting,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	gatewayController.RegisterRoutes(mux)
	return svc
}
