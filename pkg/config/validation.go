package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks a loaded configuration for administratively invalid
// values. Struct tags cover per-field rules; cross-field constraints are
// checked explicitly below.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("field %s failed validation rule %q", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if err := validateOrigin(&cfg.Origin); err != nil {
		return err
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return err
	}
	if err := validateScheduler(&cfg.Scheduler); err != nil {
		return err
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry is enabled but no endpoint is configured")
	}
	return nil
}

func validateOrigin(cfg *OriginConfig) error {
	switch cfg.Type {
	case "http":
		if cfg.HTTP.BaseURL == "" {
			return fmt.Errorf("origin type is http but http.base_url is empty")
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("origin type is s3 but s3.bucket is empty")
		}
	}
	return nil
}

func validateCache(cfg *CacheConfig) error {
	if cfg.Type == "badger" && cfg.Path == "" {
		return fmt.Errorf("cache type is badger but no path is configured")
	}
	return nil
}

func validateScheduler(cfg *SchedulerConfig) error {
	if cfg.StreamWarmup >= cfg.StreamSteady {
		return fmt.Errorf("scheduler stream_warmup (%v) must be below stream_steady (%v)",
			cfg.StreamWarmup, cfg.StreamSteady)
	}
	if cfg.StreamSteady >= cfg.StreamLongRunning {
		return fmt.Errorf("scheduler stream_steady (%v) must be below stream_long_running (%v)",
			cfg.StreamSteady, cfg.StreamLongRunning)
	}
	if cfg.BaseDelay > cfg.MaxDelay {
		return fmt.Errorf("scheduler base_delay (%v) must not exceed max_delay (%v)",
			cfg.BaseDelay, cfg.MaxDelay)
	}

	seen := make(map[string]bool, len(cfg.Steps))
	for _, step := range cfg.Steps {
		if seen[step.Name] {
			return fmt.Errorf("scheduler step %q is declared twice", step.Name)
		}
		seen[step.Name] = true
	}
	return nil
}
