package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"envgate-server/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(withCORS(cfg.CORSAllowedOrigins, mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// withCORS wraps next only when origins are configured.
func withCORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(next)
}
