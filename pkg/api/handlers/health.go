package handlers

import (
	"net/http"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	scheduler *prefetch.Scheduler
}

// NewHealthHandler creates a new health handler. The scheduler may be nil,
// in which case readiness reports unhealthy.
func NewHealthHandler(scheduler *prefetch.Scheduler) *HealthHandler {
	return &HealthHandler{scheduler: scheduler}
}

// Liveness handles GET /health. Succeeds as long as the HTTP server is
// responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "prefetchd",
	}))
}

// Readiness handles GET /health/ready. Ready once the scheduler exists.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("scheduler not initialized"))
		return
	}
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"phase": h.scheduler.CurrentPhase().String(),
	}))
}
