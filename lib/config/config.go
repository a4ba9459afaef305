// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the master configuration for the collector.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths        PathsConfig        `yaml:"paths"`
	Device       DeviceConfig       `yaml:"device"`
	Store        StoreConfig        `yaml:"store"`
	Upload       UploadConfig       `yaml:"upload"`
	Retry        RetryConfig        `yaml:"retry"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Coordinator  CoordinatorConfig  `yaml:"coordinator"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Log          LogConfig          `yaml:"log"`
}

// PathsConfig configures file locations.
type PathsConfig struct {
	// Root is the base directory for collector state.
	Root string `yaml:"root"`

	// Database is the SQLite record store.
	// Default: ${AWM_ROOT}/records.db
	Database string `yaml:"database"`

	// Identity is the file holding the device UUID.
	// Default: ${AWM_ROOT}/uuid.dat
	Identity string `yaml:"identity"`
}

// DeviceConfig describes the reporting device.
type DeviceConfig struct {
	// OS is reported in every record's OS field.
	// Default: runtime GOOS as seen by the collector ("linux", ...)
	OS string `yaml:"os"`
}

// StoreConfig configures the local record store.
type StoreConfig struct {
	// Durable makes every commit survive power loss, at the cost of an
	// fsync per write. Default: false (commits survive process crashes).
	Durable bool `yaml:"durable"`
}

// UploadConfig configures delivery to the collection endpoint.
type UploadConfig struct {
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds one POST. Default: 15s
	Timeout time.Duration `yaml:"timeout"`

	// Compression is "none" or "gzip". Default: none
	Compression string `yaml:"compression"`

	// Immediate uploads each observation as it is captured when online.
	// When false, observations are only uploaded by retry sweeps.
	// Default: true
	Immediate bool `yaml:"immediate"`
}

// RetryConfig schedules the retry sweep.
type RetryConfig struct {
	// InitialDelay before the first sweep. Default: 30s
	InitialDelay time.Duration `yaml:"initial_delay"`

	// Interval between sweeps. Default: 5s
	Interval time.Duration `yaml:"interval"`
}

// ConnectivityConfig configures the connectivity oracle.
type ConnectivityConfig struct {
	ProbeURL     string        `yaml:"probe_url"`
	ProbeTTL     time.Duration `yaml:"probe_ttl"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// AssumeOnline skips link detection and probing entirely and always
	// allows uploads. Meant for wired hosts with no WiFi interface.
	AssumeOnline bool `yaml:"assume_online"`
}

// CoordinatorConfig sizes the immediate-upload worker pool.
type CoordinatorConfig struct {
	Workers       int           `yaml:"workers"`
	QueueSize     int           `yaml:"queue_size"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address serving /metrics. Empty disables it.
	Listen string `yaml:"listen"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is debug, info, warn, or error. Default: info
	Level string `yaml:"level"`

	// Format is auto, text, or json. Auto picks text on a terminal and
	// json otherwise. Default: auto
	Format string `yaml:"format"`
}

// Default returns the default configuration. Path fields still contain
// ${HOME} and ${AWM_ROOT} references; LoadFile expands them.
func Default() *Config {
	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:     "${HOME}/.local/state/awm",
			Database: "${AWM_ROOT}/records.db",
			Identity: "${AWM_ROOT}/uuid.dat",
		},
		Device: DeviceConfig{OS: runtime.GOOS},
		Upload: UploadConfig{
			Endpoint:    "https://test.rightmesh.io/awm-lib-server/",
			Timeout:     15 * time.Second,
			Compression: "none",
			Immediate:   true,
		},
		Retry: RetryConfig{
			InitialDelay: 30 * time.Second,
			Interval:     5 * time.Second,
		},
		Connectivity: ConnectivityConfig{
			ProbeURL:     "http://connectivitycheck.gstatic.com/generate_204",
			ProbeTTL:     30 * time.Second,
			ProbeTimeout: 5 * time.Second,
		},
		Coordinator: CoordinatorConfig{
			Workers:       4,
			QueueSize:     64,
			ShutdownGrace: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by AWM_CONFIG. If the
// variable is not set, Load fails rather than guessing a location.
func Load() (*Config, error) {
	configPath := os.Getenv("AWM_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("AWM_CONFIG environment variable not set; " +
			"set it to the path of your awm.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, overlaying
// it on Default and expanding path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["AWM_ROOT"] = c.Paths.Root // For dependent paths.

	c.Paths.Database = expandVars(c.Paths.Database, vars)
	c.Paths.Identity = expandVars(c.Paths.Identity, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.Database == "" {
		errs = append(errs, fmt.Errorf("paths.database is required"))
	}
	if c.Paths.Identity == "" {
		errs = append(errs, fmt.Errorf("paths.identity is required"))
	}

	endpoint, err := url.Parse(c.Upload.Endpoint)
	switch {
	case c.Upload.Endpoint == "":
		errs = append(errs, fmt.Errorf("upload.endpoint is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("upload.endpoint: %w", err))
	case endpoint.Scheme != "http" && endpoint.Scheme != "https":
		errs = append(errs, fmt.Errorf("upload.endpoint must be an http or https URL"))
	case c.Environment == Production && endpoint.Scheme != "https":
		errs = append(errs, fmt.Errorf("upload.endpoint must use https in production"))
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("upload.timeout must be positive"))
	}
	compressionValues := []string{"none", "gzip"}
	if !slices.Contains(compressionValues, c.Upload.Compression) {
		errs = append(errs, fmt.Errorf("upload.compression must be one of: %v", compressionValues))
	}

	if c.Retry.InitialDelay <= 0 {
		errs = append(errs, fmt.Errorf("retry.initial_delay must be positive"))
	}
	if c.Retry.Interval <= 0 {
		errs = append(errs, fmt.Errorf("retry.interval must be positive"))
	}

	if !c.Connectivity.AssumeOnline {
		if _, err := url.Parse(c.Connectivity.ProbeURL); err != nil || c.Connectivity.ProbeURL == "" {
			errs = append(errs, fmt.Errorf("connectivity.probe_url must be a URL"))
		}
		if c.Connectivity.ProbeTTL <= 0 {
			errs = append(errs, fmt.Errorf("connectivity.probe_ttl must be positive"))
		}
		if c.Connectivity.ProbeTimeout <= 0 {
			errs = append(errs, fmt.Errorf("connectivity.probe_timeout must be positive"))
		}
	}

	if c.Coordinator.Workers < 1 {
		errs = append(errs, fmt.Errorf("coordinator.workers must be at least 1"))
	}
	if c.Coordinator.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("coordinator.queue_size must be at least 1"))
	}
	if c.Coordinator.ShutdownGrace <= 0 {
		errs = append(errs, fmt.Errorf("coordinator.shutdown_grace must be positive"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	formatValues := []string{"auto", "text", "json"}
	if !slices.Contains(formatValues, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formatValues))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EnsurePaths creates the root directory and the parents of every
// configured file.
func (c *Config) EnsurePaths() error {
	directories := []string{
		c.Paths.Root,
		filepath.Dir(c.Paths.Database),
		filepath.Dir(c.Paths.Identity),
	}
	for _, directory := range directories {
		if directory == "" || directory == "." {
			continue
		}
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}
