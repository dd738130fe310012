package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"envgate-server/internal/config"
	"envgate-server/internal/httpapi"
	"envgate-server/internal/modules/gateway"
	"envgate-server/internal/modules/gateway/service"
	"envgate-server/internal/modules/geo"
	"envgate-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"profile", cfg.Profile,
		"enrichment", cfg.Enrichment(),
		"ipinfoTokenSet", cfg.IPInfoToken != "",
		"upstreamTimeout", cfg.UpstreamTimeout,
		"locationCache", cfg.LocationCache,
		"locationCacheTTL", cfg.LocationCacheTTL,
		"trustProxyHeaders", cfg.TrustProxyHeaders,
		"corsOrigins", cfg.CORSAllowedOrigins,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	locCache, err := openLocationCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := locCache.close(); err != nil {
			slog.Error("location cache close", "error", err)
		}
	}()

	if locCache.purge != nil {
		purgeCtx, stopPurge := context.WithCancel(ctx)
		defer stopPurge()
		go runPurger(purgeCtx, locCache.purge, purgeInterval)
	}

	var enricher service.Enricher
	if cfg.Enrichment() {
		if cfg.IPInfoToken == "" {
			slog.Warn("IPINFO_ACCESS_TOKEN not set, every lookup will report an error")
		}
		enricher = geo.NewIPEnricher(
			cfg.IPInfoToken,
			geo.NewIPInfoClient(cfg.IPInfoURL, cfg.UpstreamTimeout),
			geo.NewNominatimClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.UpstreamTimeout),
			locCache,
			cfg.LocationCacheTTL,
			slog.Default(),
		)
	}

	mux := httpapi.NewMux(locCache)
	svc := gateway.RegisterFeature(mux, cfg, enricher, slog.Default())

	var subscriber *mqtt.Subscriber
	if cfg.MQTTBroker != "" {
		// The handler must be in place before Connect; the broker can deliver
		// right after the subscription is acknowledged.
		subscriber = mqtt.NewSubscriber(cfg, slog.Default())
		gateway.RegisterMQTTHandler(subscriber, svc, slog.Default())

		// Short timeout so a missing broker does not block startup. The client
		// keeps retrying after this returns.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt not connected yet, retrying in background", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
