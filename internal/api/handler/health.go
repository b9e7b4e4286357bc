package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/scribe/internal/api/response"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health. It reports 503
// with per-service status when any check fails.
func NewHealthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := make(map[string]string, len(checks))
		degraded := false
		for name, p := range checks {
			status[name] = "ok"
			if err := p.Ping(r.Context()); err != nil {
				status[name] = "degraded"
				degraded = true
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", status)
			return
		}
		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": status,
		})
	}
}
