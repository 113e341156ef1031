package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// StreamsHandler manages streaming session registration. The scheduler's
// admission phases key off the sessions registered here.
type StreamsHandler struct {
	scheduler *prefetch.Scheduler
}

// NewStreamsHandler creates a new streams handler.
func NewStreamsHandler(scheduler *prefetch.Scheduler) *StreamsHandler {
	return &StreamsHandler{scheduler: scheduler}
}

type registerStreamRequest struct {
	// ID is optional; an empty id is generated server side.
	ID string `json:"id"`
}

type registerStreamResponse struct {
	ID          string `json:"id"`
	ActiveCount int    `json:"activeCount"`
}

// Register handles POST /v1/streams. The body is optional.
func (h *StreamsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerStreamRequest
	if r.ContentLength > 0 {
		if !decodeJSONBody(w, r, &req) {
			return
		}
	}

	registry := h.scheduler.Registry()
	id := registry.Register(req.ID)

	// A starting stream moves the admission phase immediately.
	h.scheduler.Tick()

	writeJSON(w, http.StatusCreated, okResponse(registerStreamResponse{
		ID:          id,
		ActiveCount: registry.ActiveCount(),
	}))
}

// Unregister handles DELETE /v1/streams/{id}. Unknown ids are accepted;
// unregistration is idempotent.
func (h *StreamsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		badRequest(w, "Missing stream id")
		return
	}

	registry := h.scheduler.Registry()
	registry.Unregister(id)

	// A finished stream is the scheduler's cue for a prefetch burst.
	h.scheduler.Tick()

	writeJSON(w, http.StatusOK, okResponse(registerStreamResponse{
		ID:          id,
		ActiveCount: registry.ActiveCount(),
	}))
}
