package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// PrefetchHandler exposes explicit prefetch requests and cancellation.
type PrefetchHandler struct {
	scheduler *prefetch.Scheduler
}

// NewPrefetchHandler creates a new prefetch handler.
func NewPrefetchHandler(scheduler *prefetch.Scheduler) *PrefetchHandler {
	return &PrefetchHandler{scheduler: scheduler}
}

type prefetchRequest struct {
	Key              string `json:"key"`
	Priority         string `json:"priority"`
	Class            string `json:"class"`
	RespectStreaming bool   `json:"respectStreaming"`

	// NetworkThreshold overrides the configured minimum network class
	// for this request ("slow", "medium", "fast"). Empty keeps the
	// scheduler default.
	NetworkThreshold string `json:"networkThreshold"`

	// Wait blocks the request until the prefetch resolves. Without it the
	// task is enqueued and the response reports "pending".
	Wait bool `json:"wait"`
}

type prefetchResponse struct {
	Key     string `json:"key"`
	Outcome string `json:"outcome"`
	Bytes   int    `json:"bytes,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Skip    string `json:"skipReason,omitempty"`
}

// Request handles POST /v1/prefetch. The response always carries an
// outcome; prefetch failures surface as fallback, never as HTTP errors.
func (h *PrefetchHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req prefetchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		badRequest(w, "Missing resource key")
		return
	}

	opts := prefetch.RequestOptions{
		Class:            prefetch.ParseResourceClass(req.Class),
		RespectStreaming: req.RespectStreaming,
	}
	if strings.EqualFold(req.Priority, "high") {
		opts.Priority = prefetch.PriorityHigh
	}
	if req.NetworkThreshold != "" {
		opts.NetworkThreshold = prefetch.ParseNetworkClass(req.NetworkThreshold)
		opts.HasNetworkThreshold = true
	}

	if req.Wait {
		res := h.scheduler.Request(r.Context(), prefetch.ResourceKey(req.Key), opts)
		writeJSON(w, http.StatusOK, okResponse(toPrefetchResponse(res)))
		return
	}

	res, pending := h.scheduler.RequestAsync(prefetch.ResourceKey(req.Key), opts)
	if pending != nil {
		writeJSON(w, http.StatusAccepted, okResponse(prefetchResponse{
			Key:     req.Key,
			Outcome: "pending",
		}))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(toPrefetchResponse(res)))
}

// Cancel handles DELETE /v1/prefetch/{key}. Only queued work is
// cancellable; an in-flight attempt runs to completion.
func (h *PrefetchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		badRequest(w, "Missing resource key")
		return
	}

	if !h.scheduler.Cancel(prefetch.ResourceKey(key)) {
		notFound(w, "No cancellable task for resource")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]string{"key": key, "outcome": "canceled"}))
}

func toPrefetchResponse(res prefetch.Result) prefetchResponse {
	out := prefetchResponse{
		Key:     string(res.Key),
		Outcome: res.Outcome.String(),
		Bytes:   len(res.Data),
		Skip:    res.SkipReason,
	}
	if res.Reason != prefetch.ReasonNone {
		out.Reason = res.Reason.String()
	}
	return out
}
