package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mstellato/prefetchd/internal/logger"
	"github.com/mstellato/prefetchd/pkg/api/handlers"
	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET    /health                - Liveness probe
//   - GET    /health/ready          - Readiness probe
//   - POST   /v1/streams            - Register a streaming session
//   - DELETE /v1/streams/{id}       - Unregister a streaming session
//   - POST   /v1/navigation         - Record a step visit or transition
//   - POST   /v1/prefetch           - Request a prefetch
//   - DELETE /v1/prefetch/*         - Cancel a queued prefetch
//   - GET    /v1/metrics            - Scheduler counters snapshot
//   - GET    /v1/fallback-strategy  - Active degradation strategy
//   - PUT    /v1/fallback-strategy  - Update degradation strategy
//   - DELETE /v1/failures           - Clear the failure ledger
func NewRouter(scheduler *prefetch.Scheduler, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	r.Use(middleware.Timeout(requestTimeout))

	healthHandler := handlers.NewHealthHandler(scheduler)
	streamsHandler := handlers.NewStreamsHandler(scheduler)
	navHandler := handlers.NewNavigationHandler(scheduler)
	prefetchHandler := handlers.NewPrefetchHandler(scheduler)
	adminHandler := handlers.NewAdminHandler(scheduler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/streams", func(r chi.Router) {
			r.Post("/", streamsHandler.Register)
			r.Delete("/{id}", streamsHandler.Unregister)
		})

		r.Post("/navigation", navHandler.Record)

		r.Route("/prefetch", func(r chi.Router) {
			r.Post("/", prefetchHandler.Request)
			r.Delete("/*", prefetchHandler.Cancel)
		})

		r.Get("/metrics", adminHandler.Metrics)
		r.Get("/fallback-strategy", adminHandler.GetFallbackStrategy)
		r.Put("/fallback-strategy", adminHandler.PutFallbackStrategy)
		r.Delete("/failures", adminHandler.ClearFailures)
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusNotFound, ErrorResponse("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusMethodNotAllowed, ErrorResponse("method not allowed"))
	})

	return r
}

// requestLogger logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
