package config

import (
	"testing"
	"time"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected INFO log level, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected text format, got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("expected 30s shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.ListenAddress != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Metrics.ListenAddress != ":9090" {
		t.Errorf("expected :9090, got %q", cfg.Metrics.ListenAddress)
	}
	if cfg.Scheduler.MaxConcurrent != 2 {
		t.Errorf("expected max_concurrent 2, got %d", cfg.Scheduler.MaxConcurrent)
	}
	if cfg.Scheduler.MaxAttempts != 3 {
		t.Errorf("expected max_attempts 3, got %d", cfg.Scheduler.MaxAttempts)
	}
	if cfg.Scheduler.BaseDelay != time.Second {
		t.Errorf("expected base_delay 1s, got %v", cfg.Scheduler.BaseDelay)
	}
	if cfg.Scheduler.CooldownWindow != time.Minute {
		t.Errorf("expected cooldown 60s, got %v", cfg.Scheduler.CooldownWindow)
	}
	if cfg.Scheduler.NetworkThreshold != "medium" {
		t.Errorf("expected medium threshold, got %q", cfg.Scheduler.NetworkThreshold)
	}
	if cfg.Scheduler.StreamWarmup != 2*time.Second ||
		cfg.Scheduler.StreamSteady != 8*time.Second ||
		cfg.Scheduler.StreamLongRunning != 15*time.Second {
		t.Errorf("unexpected phase boundaries %v/%v/%v",
			cfg.Scheduler.StreamWarmup, cfg.Scheduler.StreamSteady, cfg.Scheduler.StreamLongRunning)
	}
	if cfg.Cache.Type != "memory" {
		t.Errorf("expected memory cache, got %q", cfg.Cache.Type)
	}
	if cfg.Origin.Type != "http" {
		t.Errorf("expected http origin, got %q", cfg.Origin.Type)
	}
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:         LoggingConfig{Level: "debug"},
		ShutdownTimeout: 5 * time.Second,
		Scheduler:       SchedulerConfig{MaxConcurrent: 4},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected level normalized to DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("explicit shutdown timeout overwritten: %v", cfg.ShutdownTimeout)
	}
	if cfg.Scheduler.MaxConcurrent != 4 {
		t.Errorf("explicit max_concurrent overwritten: %d", cfg.Scheduler.MaxConcurrent)
	}
}

func TestApplyDefaultsResourceClass(t *testing.T) {
	cfg := &Config{
		Scheduler: SchedulerConfig{
			Steps: []StepConfig{
				{Name: "review", Resources: []ResourceConfig{
					{Key: "bundle/review.js"},
					{Key: "css/review.css", Class: "stylesheet"},
				}},
			},
		},
	}
	ApplyDefaults(cfg)

	if got := cfg.Scheduler.Steps[0].Resources[0].Class; got != "code" {
		t.Errorf("expected default class code, got %q", got)
	}
	if got := cfg.Scheduler.Steps[0].Resources[1].Class; got != "stylesheet" {
		t.Errorf("explicit class overwritten: %q", got)
	}
}

func TestGetDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}
