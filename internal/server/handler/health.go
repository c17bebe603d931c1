package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// rootMessage is the liveness banner served on GET /.
const rootMessage = "GoQuant Trade Simulator Backend Running"

// Probe checks one optional backend.
type Probe func(ctx context.Context) error

// HealthHandler serves the banner and the health check.
type HealthHandler struct {
	probes map[string]Probe
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. probes may be nil.
func NewHealthHandler(probes map[string]Probe, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{probes: probes, logger: logHandler(logger, "health")}
}

// Root responds with the liveness banner.
// GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": rootMessage})
}

// HealthCheck reports "ok", or "degraded" with 503 when a backend probe fails.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	var checks map[string]string
	if len(h.probes) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks = make(map[string]string, len(h.probes))
		for name, probe := range h.probes {
			if err := probe(ctx); err != nil {
				h.logger.WarnContext(ctx, "health probe failed",
					slog.String("backend", name),
					slog.String("error", err.Error()),
				)
				checks[name] = err.Error()
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
	}

	body := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	writeJSON(w, code, body)
}
