package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"envgate-server/internal/utils"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	pinger Pinger
}

func NewHealthchecker(pinger Pinger) healthchecker {
	return &healthcheckerImpl{pinger: pinger}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			slog.Error("failed to check location cache connectivity", "error", err)
			utils.WriteError(w, http.StatusServiceUnavailable, "location cache unavailable")
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, pinger Pinger) {
	healthchecker := NewHealthchecker(pinger)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
