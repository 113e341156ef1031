package handlers

import (
	"net/http"
	"time"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// AdminHandler exposes scheduler administration: metrics, the fallback
// strategy, and failure history.
type AdminHandler struct {
	scheduler *prefetch.Scheduler
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(scheduler *prefetch.Scheduler) *AdminHandler {
	return &AdminHandler{scheduler: scheduler}
}

// Metrics handles GET /v1/metrics.
func (h *AdminHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(h.scheduler.Metrics()))
}

// fallbackStrategyDTO carries the strategy over the wire with durations
// in milliseconds.
type fallbackStrategyDTO struct {
	MaxRetries                int   `json:"maxRetries"`
	RetryDelayMillis          int64 `json:"retryDelayMillis"`
	FallbackTimeoutMillis     int64 `json:"fallbackTimeoutMillis"`
	EnableGracefulDegradation bool  `json:"enableGracefulDegradation"`
}

// GetFallbackStrategy handles GET /v1/fallback-strategy.
func (h *AdminHandler) GetFallbackStrategy(w http.ResponseWriter, r *http.Request) {
	fs := h.scheduler.FallbackStrategySnapshot()
	writeJSON(w, http.StatusOK, okResponse(fallbackStrategyDTO{
		MaxRetries:                fs.MaxRetries,
		RetryDelayMillis:          fs.RetryDelay.Milliseconds(),
		FallbackTimeoutMillis:     fs.FallbackTimeout.Milliseconds(),
		EnableGracefulDegradation: fs.EnableGracefulDegradation,
	}))
}

// PutFallbackStrategy handles PUT /v1/fallback-strategy. An invalid
// strategy is rejected whole and the previous one stays in force.
func (h *AdminHandler) PutFallbackStrategy(w http.ResponseWriter, r *http.Request) {
	var dto fallbackStrategyDTO
	if !decodeJSONBody(w, r, &dto) {
		return
	}

	fs := prefetch.FallbackStrategy{
		MaxRetries:                dto.MaxRetries,
		RetryDelay:                time.Duration(dto.RetryDelayMillis) * time.Millisecond,
		FallbackTimeout:           time.Duration(dto.FallbackTimeoutMillis) * time.Millisecond,
		EnableGracefulDegradation: dto.EnableGracefulDegradation,
	}
	if err := h.scheduler.ConfigureFallbackStrategy(fs); err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, okResponse(dto))
}

// ClearFailures handles DELETE /v1/failures.
func (h *AdminHandler) ClearFailures(w http.ResponseWriter, r *http.Request) {
	h.scheduler.ClearFailureHistory()
	writeJSON(w, http.StatusOK, okResponse(map[string]string{"failures": "cleared"}))
}
