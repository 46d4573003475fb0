package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/registrar/internal/http/helpers"
)

// Pinger es cualquier dependencia que sabe responder si está viva.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health responde /health. Checks vacíos = sólo liveness.
type Health struct {
	Started time.Time
	Version string
	Checks  map[string]Pinger
}

type healthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Version:   h.Version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.Started).Round(time.Second).String(),
	}
	status := http.StatusOK
	if len(h.Checks) > 0 {
		resp.Checks = make(map[string]string, len(h.Checks))
		for name, p := range h.Checks {
			if err := p.Ping(ctx); err != nil {
				resp.Checks[name] = "down"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "up"
		}
	}
	helpers.WriteJSON(w, status, resp)
}
