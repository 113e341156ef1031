package handlers

import (
	"net/http"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// NavigationHandler records wizard navigation events.
type NavigationHandler struct {
	scheduler *prefetch.Scheduler
}

// NewNavigationHandler creates a new navigation handler.
func NewNavigationHandler(scheduler *prefetch.Scheduler) *NavigationHandler {
	return &NavigationHandler{scheduler: scheduler}
}

type navigationRequest struct {
	// From is empty for the wizard's initial step.
	From string `json:"from"`
	To   string `json:"to"`
}

type navigationResponse struct {
	Current    string   `json:"current"`
	Candidates []string `json:"candidates,omitempty"`
	Imminent   bool     `json:"imminent"`
}

// Record handles POST /v1/navigation. An event without a source step is
// recorded as the initial visit; everything else as a transition. The
// response carries the tracker's fresh prediction so clients can warm
// their own caches too.
func (h *NavigationHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req navigationRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.To == "" {
		badRequest(w, "Missing destination step")
		return
	}

	tracker := h.scheduler.Tracker()
	if req.From == "" {
		tracker.RecordVisit(req.To)
	} else {
		tracker.RecordTransition(req.From, req.To)
	}

	// Navigation invalidates the previous phase computation.
	h.scheduler.Tick()

	pred := tracker.PredictNext(req.To, 0)
	writeJSON(w, http.StatusOK, okResponse(navigationResponse{
		Current:    req.To,
		Candidates: pred.Candidates,
		Imminent:   pred.Imminent,
	}))
}
