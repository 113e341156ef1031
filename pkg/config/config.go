// Package config loads and validates the prefetchd configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PREFETCHD_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// Config represents the prefetchd configuration.
//
// It captures the static aspects of the daemon: logging, telemetry, the
// REST API server, the Prometheus endpoint, the scheduler tuning, the
// bundle origin, and the resource cache. The fallback strategy and the
// failure ledger are runtime state managed through the REST API.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Server contains REST API server configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Scheduler contains prefetch scheduler tuning
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`

	// Origin configures where step bundles are fetched from
	Origin OriginConfig `mapstructure:"origin" yaml:"origin"`

	// Cache configures the resource cache backing the scheduler
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a path
	Output string `mapstructure:"output" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	// Enabled turns OTLP trace export on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP gRPC endpoint (host:port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`

	// Profiling controls Pyroscope continuous profiling
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled turns profiling on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes selects which profiles to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// ServerConfig contains REST API server configuration.
type ServerConfig struct {
	// ListenAddress is the host:port the API server binds to
	ListenAddress string `mapstructure:"listen_address" validate:"required" yaml:"listen_address"`

	// RequestTimeout bounds request handling end to end
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// ReadTimeout and WriteTimeout are the http.Server timeouts
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// MetricsConfig contains Prometheus metrics server configuration.
type MetricsConfig struct {
	// Enabled turns the metrics endpoint on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ListenAddress is the host:port for the metrics server
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address"`

	// Path is the scrape path
	Path string `mapstructure:"path" yaml:"path"`
}

// SchedulerConfig contains prefetch scheduler tuning.
type SchedulerConfig struct {
	// MaxConcurrent is the global cap on in-flight prefetch tasks
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=0" yaml:"max_concurrent"`

	// MaxAttempts is the attempt budget before fallback and cooldown
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=0,lte=10" yaml:"max_attempts"`

	// BaseDelay is the base for exponential retry backoff
	BaseDelay time.Duration `mapstructure:"base_delay" yaml:"base_delay"`

	// MaxDelay caps the retry backoff
	MaxDelay time.Duration `mapstructure:"max_delay" yaml:"max_delay"`

	// AttemptTimeout is the per-attempt deadline
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`

	// CooldownWindow excludes a failing resource after the attempt budget
	CooldownWindow time.Duration `mapstructure:"cooldown_window" yaml:"cooldown_window"`

	// NetworkThreshold is the minimum network class for low priority work
	// Valid values: slow, medium, fast
	NetworkThreshold string `mapstructure:"network_threshold" validate:"omitempty,oneof=slow medium fast" yaml:"network_threshold"`

	// MinIdleBudget defers admission below this idle processing budget
	MinIdleBudget time.Duration `mapstructure:"min_idle_budget" yaml:"min_idle_budget"`

	// TickInterval drives the periodic speculation tick
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`

	// QueueSize bounds each priority queue
	QueueSize int `mapstructure:"queue_size" validate:"gte=0" yaml:"queue_size"`

	// HistoryCapacity bounds the navigation history
	HistoryCapacity int `mapstructure:"history_capacity" validate:"gte=0" yaml:"history_capacity"`

	// StreamWarmup, StreamSteady, StreamLongRunning are the phase
	// boundaries keyed to streaming activity duration
	StreamWarmup      time.Duration `mapstructure:"stream_warmup" yaml:"stream_warmup"`
	StreamSteady      time.Duration `mapstructure:"stream_steady" yaml:"stream_steady"`
	StreamLongRunning time.Duration `mapstructure:"stream_long_running" yaml:"stream_long_running"`

	// Steps declares the wizard's step sequence and the resources backing
	// each step, used for speculative prefetching
	Steps []StepConfig `mapstructure:"steps" yaml:"steps"`
}

// StepConfig declares one wizard step and its resources.
type StepConfig struct {
	// Name is the step identifier used in navigation events
	Name string `mapstructure:"name" validate:"required" yaml:"name"`

	// Resources are the prefetchable units backing the step
	Resources []ResourceConfig `mapstructure:"resources" yaml:"resources"`
}

// ResourceConfig declares one prefetchable resource.
type ResourceConfig struct {
	// Key identifies the resource at the origin
	Key string `mapstructure:"key" validate:"required" yaml:"key"`

	// Class categorizes the resource: code, asset, stylesheet, image
	Class string `mapstructure:"class" validate:"omitempty,oneof=code asset stylesheet image" yaml:"class"`
}

// OriginConfig configures the bundle origin.
type OriginConfig struct {
	// Type selects the origin backend: http or s3
	Type string `mapstructure:"type" validate:"required,oneof=http s3" yaml:"type"`

	// HTTP configures the HTTP origin (required when type is http)
	HTTP HTTPOriginConfig `mapstructure:"http" yaml:"http"`

	// S3 configures the S3 origin (required when type is s3)
	S3 S3OriginConfig `mapstructure:"s3" yaml:"s3"`
}

// HTTPOriginConfig configures an HTTP bundle origin.
type HTTPOriginConfig struct {
	// BaseURL is the origin root; resource keys are joined as paths
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Timeout bounds a single origin request
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// S3OriginConfig configures an S3 bundle origin.
type S3OriginConfig struct {
	// Bucket holding the bundles
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// Prefix prepended to resource keys
	Prefix string `mapstructure:"prefix" yaml:"prefix"`

	// Region for the AWS client
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the S3 endpoint (MinIO etc)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// AccessKey and SecretKey are optional static credentials
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`

	// UsePathStyle is required for most S3-compatible stores
	UsePathStyle bool `mapstructure:"use_path_style" yaml:"use_path_style"`
}

// CacheConfig configures the resource cache.
type CacheConfig struct {
	// Type selects the cache backend: memory or badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger" yaml:"type"`

	// MaxEntries bounds the memory cache
	MaxEntries int `mapstructure:"max_entries" validate:"gte=0" yaml:"max_entries"`

	// TTL is the entry lifetime
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`

	// Path is the badger directory (required when type is badger)
	Path string `mapstructure:"path" yaml:"path"`
}

// ToScheduler converts the scheduler section into the prefetch package's
// config, including the step sequence and the step-to-resource mapping.
func (c *SchedulerConfig) ToScheduler() prefetch.Config {
	cfg := prefetch.Config{
		MaxConcurrent:     c.MaxConcurrent,
		MaxAttempts:       c.MaxAttempts,
		BaseDelay:         c.BaseDelay,
		MaxDelay:          c.MaxDelay,
		AttemptTimeout:    c.AttemptTimeout,
		CooldownWindow:    c.CooldownWindow,
		NetworkThreshold:  prefetch.ParseNetworkClass(c.NetworkThreshold),
		MinIdleBudget:     c.MinIdleBudget,
		TickInterval:      c.TickInterval,
		QueueSize:         c.QueueSize,
		HistoryCapacity:   c.HistoryCapacity,
		StreamWarmup:      c.StreamWarmup,
		StreamSteady:      c.StreamSteady,
		StreamLongRunning: c.StreamLongRunning,
	}
	if len(c.Steps) > 0 {
		cfg.StepSequence = make([]string, 0, len(c.Steps))
		cfg.StepResources = make(map[string][]prefetch.ResourceKey, len(c.Steps))
		for _, step := range c.Steps {
			cfg.StepSequence = append(cfg.StepSequence, step.Name)
			for _, res := range step.Resources {
				cfg.StepResources[step.Name] = append(cfg.StepResources[step.Name], prefetch.ResourceKey(res.Key))
			}
		}
	}
	return cfg
}

// ResourceClasses returns the configured class per resource key.
func (c *SchedulerConfig) ResourceClasses() map[prefetch.ResourceKey]prefetch.ResourceClass {
	classes := make(map[prefetch.ResourceKey]prefetch.ResourceClass)
	for _, step := range c.Steps {
		for _, res := range step.Resources {
			classes[prefetch.ResourceKey(res.Key)] = prefetch.ParseResourceClass(res.Class)
		}
	}
	return classes
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PREFETCHD_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// Without a config file, defaults apply.
	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the file
// is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please create a configuration file first, or specify one:\n"+
				"  prefetchd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the origin section may contain credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the PREFETCHD_ prefix with underscores.
	// Example: PREFETCHD_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("PREFETCHD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getConfigDir())
	v.AddConfigPath(".")
}

// readConfigFile attempts to read the config file. A missing file is not
// an error; a malformed one is.
func readConfigFile(v *viper.Viper) (bool, error) {
	err := v.ReadInConfig()
	if err == nil {
		return true, nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to read config file: %w", err)
}

// configDecodeHooks returns the mapstructure decode hooks used when
// unmarshalling: duration strings and comma-separated slices.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook converts strings like "5s" or "500ms" into
// time.Duration values.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		if f.Kind() == reflect.String {
			return time.ParseDuration(data.(string))
		}
		return data, nil
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "prefetchd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "prefetchd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks for a config file at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
