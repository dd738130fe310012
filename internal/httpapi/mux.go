package httpapi

import (
	"net/http"

	"envgate-server/internal/metrics"
)

// NewMux returns a mux with the operational routes (/healthz, /metrics)
// registered. Feature modules add their own routes on top.
func NewMux(pinger Pinger) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, pinger)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
