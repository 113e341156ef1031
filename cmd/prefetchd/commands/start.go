package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/mstellato/prefetchd/internal/logger"
	"github.com/mstellato/prefetchd/internal/telemetry"
	"github.com/mstellato/prefetchd/pkg/api"
	"github.com/mstellato/prefetchd/pkg/config"
	"github.com/mstellato/prefetchd/pkg/loader"
	"github.com/mstellato/prefetchd/pkg/metrics"
	"github.com/mstellato/prefetchd/pkg/prefetch"
	"github.com/mstellato/prefetchd/pkg/store"
	badgerstore "github.com/mstellato/prefetchd/pkg/store/badger"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the prefetch daemon",
	Long: `Start the prefetch daemon with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/prefetchd/config.yaml.

Examples:
  # Start with default config location
  prefetchd start

  # Start with custom config file
  prefetchd start --config /etc/prefetchd/config.yaml

  # Start with environment variable overrides
  PREFETCHD_LOGGING_LEVEL=DEBUG prefetchd start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "prefetchd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "prefetchd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Origin loader
	resourceLoader, err := buildLoader(ctx, cfg)
	if err != nil {
		return err
	}

	// Resource cache
	cache, err := buildCache(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Error("cache close error", "error", err)
		}
	}()

	// Prometheus metrics and scrape endpoint
	var sink prefetch.MetricsSink
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sink = metrics.NewSchedulerMetrics(registry)
		metricsServer = metrics.NewServer(cfg.Metrics.ListenAddress, cfg.Metrics.Path, registry)
		logger.Info("Metrics enabled", "address", cfg.Metrics.ListenAddress, "path", cfg.Metrics.Path)
	} else {
		logger.Info("Metrics collection disabled")
	}

	scheduler := prefetch.NewScheduler(cfg.Scheduler.ToScheduler(), prefetch.SchedulerDeps{
		Loader:  resourceLoader,
		Probe:   prefetch.NewAdaptiveProbe(cfg.Scheduler.MinIdleBudget),
		Cache:   cache,
		Metrics: sink,
	})
	defer func() {
		if err := scheduler.Close(); err != nil {
			logger.Error("scheduler close error", "error", err)
		}
	}()

	logger.Info("Scheduler initialized",
		"max_concurrent", cfg.Scheduler.MaxConcurrent,
		"steps", len(cfg.Scheduler.Steps),
		"origin", cfg.Origin.Type,
		"cache", cfg.Cache.Type)

	// Periodic speculation tick
	go scheduler.Start(ctx)

	// Hot reload of the runtime-tunable scheduler settings
	watchPath := GetConfigFile()
	if watchPath == "" && config.DefaultConfigExists() {
		watchPath = config.GetDefaultConfigPath()
	}
	if watchPath != "" {
		go func() {
			err := config.Watch(ctx, watchPath, func(updated *config.Config) {
				applySchedulerUpdate(scheduler, updated)
			})
			if err != nil {
				logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	apiServer := api.NewServer(cfg.Server, scheduler)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// buildLoader creates the origin loader from the origin section.
func buildLoader(ctx context.Context, cfg *config.Config) (prefetch.Loader, error) {
	switch cfg.Origin.Type {
	case "s3":
		s3Loader, err := loader.ConnectS3(ctx, loader.S3Config{
			Bucket:       cfg.Origin.S3.Bucket,
			Prefix:       cfg.Origin.S3.Prefix,
			Region:       cfg.Origin.S3.Region,
			Endpoint:     cfg.Origin.S3.Endpoint,
			AccessKey:    cfg.Origin.S3.AccessKey,
			SecretKey:    cfg.Origin.S3.SecretKey,
			UsePathStyle: cfg.Origin.S3.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to S3 origin: %w", err)
		}
		logger.Info("Origin configured", "type", "s3", "bucket", cfg.Origin.S3.Bucket)
		return s3Loader, nil

	default:
		var client *http.Client
		if cfg.Origin.HTTP.Timeout > 0 {
			client = &http.Client{Timeout: cfg.Origin.HTTP.Timeout}
		}
		httpLoader := loader.NewHTTPLoader(cfg.Origin.HTTP.BaseURL, client)
		logger.Info("Origin configured", "type", "http", "base_url", cfg.Origin.HTTP.BaseURL)
		return httpLoader, nil
	}
}

// buildCache creates the resource cache from the cache section.
func buildCache(cfg *config.Config) (store.Cache, error) {
	switch cfg.Cache.Type {
	case "badger":
		cache, err := badgerstore.Open(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger cache: %w", err)
		}
		logger.Info("Cache configured", "type", "badger", "path", cfg.Cache.Path)
		return cache, nil

	default:
		logger.Info("Cache configured", "type", "memory", "max_entries", cfg.Cache.MaxEntries)
		return store.NewMemoryCache(cfg.Cache.MaxEntries, cfg.Cache.TTL), nil
	}
}

// applySchedulerUpdate pushes the runtime-tunable parts of a reloaded
// config into the running scheduler. Structural settings (origin, cache,
// listen addresses) need a restart.
func applySchedulerUpdate(scheduler *prefetch.Scheduler, cfg *config.Config) {
	current := scheduler.FallbackStrategySnapshot()

	updated := current
	if cfg.Scheduler.MaxAttempts > 0 {
		updated.MaxRetries = cfg.Scheduler.MaxAttempts
	}
	if cfg.Scheduler.BaseDelay > 0 {
		updated.RetryDelay = cfg.Scheduler.BaseDelay
	}
	if cfg.Scheduler.AttemptTimeout > 0 {
		updated.FallbackTimeout = cfg.Scheduler.AttemptTimeout
	}

	if updated == current {
		return
	}
	if err := scheduler.ConfigureFallbackStrategy(updated); err != nil {
		logger.Warn("config reload rejected", "error", err)
		return
	}
	logger.Info("Scheduler settings updated",
		"max_retries", updated.MaxRetries,
		"retry_delay", updated.RetryDelay,
		"attempt_timeout", updated.FallbackTimeout)
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
