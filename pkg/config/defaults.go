package config

import (
	"strings"
	"time"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// Default strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
	applySchedulerDefaults(&cfg.Scheduler)
	applyOriginDefaults(&cfg.Origin)
	applyCacheDefaults(&cfg.Cache)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize for consistent internal representation.
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false; telemetry is opt-in.

	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "goroutines"}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8080"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":9090"
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
}

// applySchedulerDefaults fills scheduler tuning from the prefetch package
// defaults so the two stay in sync.
func applySchedulerDefaults(cfg *SchedulerConfig) {
	def := prefetch.DefaultConfig()

	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.CooldownWindow == 0 {
		cfg.CooldownWindow = def.CooldownWindow
	}
	if cfg.NetworkThreshold == "" {
		cfg.NetworkThreshold = "medium"
	}
	cfg.NetworkThreshold = strings.ToLower(cfg.NetworkThreshold)

	if cfg.MinIdleBudget == 0 {
		cfg.MinIdleBudget = def.MinIdleBudget
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.HistoryCapacity == 0 {
		cfg.HistoryCapacity = def.HistoryCapacity
	}
	if cfg.StreamWarmup == 0 {
		cfg.StreamWarmup = def.StreamWarmup
	}
	if cfg.StreamSteady == 0 {
		cfg.StreamSteady = def.StreamSteady
	}
	if cfg.StreamLongRunning == 0 {
		cfg.StreamLongRunning = def.StreamLongRunning
	}

	for i := range cfg.Steps {
		for j := range cfg.Steps[i].Resources {
			if cfg.Steps[i].Resources[j].Class == "" {
				cfg.Steps[i].Resources[j].Class = "code"
			}
		}
	}
}

func applyOriginDefaults(cfg *OriginConfig) {
	if cfg.Type == "" {
		cfg.Type = "http"
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 30 * time.Second
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 512
	}
	if cfg.TTL == 0 {
		switch cfg.Type {
		case "badger":
			cfg.TTL = 24 * time.Hour
		default:
			cfg.TTL = 10 * time.Minute
		}
	}
}

// GetDefaultConfig returns a complete configuration with all defaults
// applied. Used when no config file exists.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Origin: OriginConfig{
			Type: "http",
			HTTP: HTTPOriginConfig{BaseURL: "http://localhost:3000/bundles"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
