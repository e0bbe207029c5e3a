// Package config holds the observer configuration: defaults, an optional
// YAML file, and CITYWATCH_* environment overrides, applied in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full observer configuration.
type Config struct {
	// LogCapacity bounds the in-memory event log
	// Default: 200, Range: 10-10000
	LogCapacity int `yaml:"log_capacity"`

	// PreGameDemandThreshold is the pre-game demand-changed firing count
	// that arms the host-defect detector
	// Default: 3, Range: 1-100
	PreGameDemandThreshold int `yaml:"pre_game_demand_threshold"`

	// DatabasePath is the sqlite snapshot database location
	// Default: .citywatch/citywatch.db
	DatabasePath string `yaml:"database_path"`

	// ListenAddr is the HTTP read/command API bind address
	// Default: 127.0.0.1:8490
	ListenAddr string `yaml:"listen_addr"`

	// ProbeStatePath, when set, enables the fsnotify file probe over the
	// host-exported UI-state file; otherwise the polling probe is used
	ProbeStatePath string `yaml:"probe_state_path"`

	// ProbeInterval is the polling probe interval
	// Default: 1s, Range: 100ms-1m
	ProbeInterval time.Duration `yaml:"probe_interval"`

	// FeedPath is the JSONL host-signal feed ("-" for stdin)
	FeedPath string `yaml:"feed_path"`

	// PersistInterval is how often the snapshot is written to sqlite
	// Default: 30s, Range: 1s-1h
	PersistInterval time.Duration `yaml:"persist_interval"`

	// RetentionMaxEvents caps the archived rows in sqlite
	// Default: 5000, Range: 200-1000000
	RetentionMaxEvents int `yaml:"retention_max_events"`

	// RetentionBatchSize is rows deleted per cleanup transaction
	// Default: 500, Range: 50-10000
	RetentionBatchSize int `yaml:"retention_batch_size"`

	// MinHostAPIVersion rejects hosts with an older modding API (semver);
	// empty disables the gate
	MinHostAPIVersion string `yaml:"min_host_api_version"`

	// LogLevel is the zerolog diagnostic level (trace..error)
	// Default: info
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LogCapacity:            200,
		PreGameDemandThreshold: 3,
		DatabasePath:           ".citywatch/citywatch.db",
		ListenAddr:             "127.0.0.1:8490",
		ProbeInterval:          time.Second,
		PersistInterval:        30 * time.Second,
		RetentionMaxEvents:     5000,
		RetentionBatchSize:     500,
		LogLevel:               "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (if non-empty), then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	stringVars := map[string]*string{
		"CITYWATCH_DATABASE_PATH":        &c.DatabasePath,
		"CITYWATCH_LISTEN_ADDR":          &c.ListenAddr,
		"CITYWATCH_PROBE_STATE_PATH":     &c.ProbeStatePath,
		"CITYWATCH_FEED_PATH":            &c.FeedPath,
		"CITYWATCH_MIN_HOST_API_VERSION": &c.MinHostAPIVersion,
		"CITYWATCH_LOG_LEVEL":            &c.LogLevel,
	}
	for key, dst := range stringVars {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	intVars := map[string]*int{
		"CITYWATCH_LOG_CAPACITY":              &c.LogCapacity,
		"CITYWATCH_PRE_GAME_DEMAND_THRESHOLD": &c.PreGameDemandThreshold,
		"CITYWATCH_RETENTION_MAX_EVENTS":      &c.RetentionMaxEvents,
		"CITYWATCH_RETENTION_BATCH_SIZE":      &c.RetentionBatchSize,
	}
	for key, dst := range intVars {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = n
	}

	durationVars := map[string]*time.Duration{
		"CITYWATCH_PROBE_INTERVAL":   &c.ProbeInterval,
		"CITYWATCH_PERSIST_INTERVAL": &c.PersistInterval,
	}
	for key, dst := range durationVars {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", key, v, err)
		}
		*dst = d
	}
	return nil
}

// Validate checks that every value is inside its documented range.
func (c *Config) Validate() error {
	if c.LogCapacity < 10 || c.LogCapacity > 10000 {
		return fmt.Errorf("log_capacity must be between 10 and 10000 (got %d)", c.LogCapacity)
	}
	if c.PreGameDemandThreshold < 1 || c.PreGameDemandThreshold > 100 {
		return fmt.Errorf("pre_game_demand_threshold must be between 1 and 100 (got %d)", c.PreGameDemandThreshold)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.ProbeInterval < 100*time.Millisecond || c.ProbeInterval > time.Minute {
		return fmt.Errorf("probe_interval must be between 100ms and 1m (got %s)", c.ProbeInterval)
	}
	if c.PersistInterval < time.Second || c.PersistInterval > time.Hour {
		return fmt.Errorf("persist_interval must be between 1s and 1h (got %s)", c.PersistInterval)
	}
	if c.RetentionMaxEvents < 200 || c.RetentionMaxEvents > 1000000 {
		return fmt.Errorf("retention_max_events must be between 200 and 1000000 (got %d)", c.RetentionMaxEvents)
	}
	if c.RetentionBatchSize < 50 || c.RetentionBatchSize > 10000 {
		return fmt.Errorf("retention_batch_size must be between 50 and 10000 (got %d)", c.RetentionBatchSize)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of trace, debug, info, warn, error (got %q)", c.LogLevel)
	}
	return nil
}
