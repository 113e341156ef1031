package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/mstellato/prefetchd/internal/logger"
	"github.com/mstellato/prefetchd/pkg/config"
	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// Server provides the REST API for the prefetch daemon.
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	cfg          config.ServerConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server.
//
// The server is created stopped. Call Start to begin serving requests.
func NewServer(cfg config.ServerConfig, scheduler *prefetch.Scheduler) *Server {
	router := NewRouter(scheduler, cfg.RequestTimeout)

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: server,
		cfg:    cfg,
	}
}

// Start starts the API HTTP server and blocks until the context is
// cancelled or the server fails. Cancellation triggers graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "address", s.cfg.ListenAddress)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server, waiting up to 10 seconds for
// in-flight requests. Idempotent.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("shutting down API server")
		err = s.server.Shutdown(shutdownCtx)
	})
	return err
}
