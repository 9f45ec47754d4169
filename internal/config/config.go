// Package config loads the runner's own service configuration. The project
// build manifest (what to build) lives in internal/manifest; this package
// covers how the runner itself operates.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the service configuration.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Build     BuildConfig     `yaml:"build"`
	Retry     RetryConfig     `yaml:"retry"`
	History   HistoryConfig   `yaml:"history"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Events    EventsConfig    `yaml:"events"`
}

// WorkspaceConfig controls where builds check out and run.
type WorkspaceConfig struct {
	Dir  string `yaml:"dir,omitempty"`  // base directory; empty uses os.TempDir
	Keep bool   `yaml:"keep,omitempty"` // keep build workspaces for inspection
}

// BuildConfig holds execution knobs for a single build.
type BuildConfig struct {
	OutputDir   string `yaml:"output_dir,omitempty"`
	Manifest    string `yaml:"manifest,omitempty"` // default manifest path inside the project
	StepTimeout string `yaml:"step_timeout,omitempty"`
	CloneDepth  int    `yaml:"clone_depth,omitempty"`
}

// RetryConfig configures backoff for retryable stage failures.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff,omitempty"`
	InitialDelay string           `yaml:"initial_delay,omitempty"`
	MaxDelay     string           `yaml:"max_delay,omitempty"`
	MaxRetries   int              `yaml:"max_retries,omitempty"`
}

// HistoryConfig configures the build history store.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"` // sqlite database path; empty disables history
}

// DaemonConfig configures daemon mode.
type DaemonConfig struct {
	Listen           string `yaml:"listen,omitempty"`
	MetricsEnabled   bool   `yaml:"metrics_enabled,omitempty"`
	ScheduleInterval string `yaml:"schedule_interval,omitempty"` // empty disables periodic builds
	WatchManifest    bool   `yaml:"watch_manifest,omitempty"`
	WatchDebounce    string `yaml:"watch_debounce,omitempty"`
}

// EventsConfig configures the optional NATS build event publisher.
type EventsConfig struct {
	Enabled       bool   `yaml:"enabled,omitempty"`
	URL           string `yaml:"url,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
}

// Load reads service configuration from path. An empty path returns defaults;
// a named path must exist.
func Load(path string) (*Config, error) {
	// Best effort .env loading so ${VAR} expansion below can see local overrides.
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("service configuration not found: %s", path)
		}
		return nil, fmt.Errorf("read service configuration: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse service configuration: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// StepTimeout returns the parsed per-step timeout.
func (c *Config) StepTimeout() time.Duration {
	return parseDurationOr(c.Build.StepTimeout, 30*time.Minute)
}

// RetryInitialDelay returns the parsed initial retry delay.
func (c *Config) RetryInitialDelay() time.Duration {
	return parseDurationOr(c.Retry.InitialDelay, time.Second)
}

// RetryMaxDelay returns the parsed retry delay cap.
func (c *Config) RetryMaxDelay() time.Duration {
	return parseDurationOr(c.Retry.MaxDelay, 30*time.Second)
}

// ScheduleInterval returns the parsed daemon schedule interval, zero when
// periodic builds are disabled.
func (c *Config) ScheduleInterval() time.Duration {
	return parseDurationOr(c.Daemon.ScheduleInterval, 0)
}

// WatchDebounce returns the parsed manifest watch debounce window.
func (c *Config) WatchDebounce() time.Duration {
	return parseDurationOr(c.Daemon.WatchDebounce, 2*time.Second)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
