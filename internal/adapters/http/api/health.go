// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/halloffame/pkg/logger"
	"github.com/okian/halloffame/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz requests by serving the Prometheus
// exposition of the service registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// ReadinessChecker reports whether the service can take traffic.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// ReadyHandler handles readiness probes.
type ReadyHandler struct {
	checker ReadinessChecker
}

// NewReadyHandler creates a new readiness handler.
func NewReadyHandler(checker ReadinessChecker) *ReadyHandler {
	return &ReadyHandler{checker: checker}
}

// HandleReady handles GET /readyz requests.
func (h *ReadyHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.Ready(r.Context()); err != nil {
		logger.Get().Named("api").Warn(r.Context(), "not ready", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
