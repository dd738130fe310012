package controller

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"envgate-server/internal/apperr"
	"envgate-server/internal/modules/gateway/service"
	"envgate-server/internal/utils"
)

const maxBodyBytes = 1 << 20

func (c *gatewayControllerImpl) handleRoot(w http.ResponseWriter, r *http.Request) {
	if !c.opts.ShowLatest {
		utils.WriteText(w, http.StatusOK, c.opts.Greeting)
		return
	}
	env, ok := c.latest.Get()
	if !ok {
		utils.WriteJSON(w, http.StatusOK, map[string]any{})
		return
	}
	utils.WriteJSON(w, http.StatusOK, env)
}

func (c *gatewayControllerImpl) handleData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		slog.Warn("data: read body failed", "error", err)
		utils.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	meta := service.Meta{
		Source:   "http",
		ClientIP: clientIP(r, c.opts.TrustProxyHeaders),
	}
	env, err := c.ingester.Ingest(r.Context(), body, meta)
	if err != nil {
		utils.WriteError(w, statusFor(err), apperr.PublicMessage(err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, env)
}

func (c *gatewayControllerImpl) handleLocation(w http.ResponseWriter, r *http.Request) {
	ip, err := parseLocationQuery(r, c.opts.TrustProxyHeaders)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	loc := c.enricher.Enrich(r.Context(), ip)
	if loc == nil {
		utils.WriteError(w, http.StatusNotFound, "location lookup disabled")
		return
	}
	if loc.Failed() {
		utils.WriteError(w, http.StatusBadGateway, loc.Error)
		return
	}
	utils.WriteJSON(w, http.StatusOK, loc)
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
