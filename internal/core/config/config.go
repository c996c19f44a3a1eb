// Package config handles configuration loading and validation for wherewasi.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	DataDir   string          `yaml:"-"` // set by caller, not from config file
}

// DatabaseConfig holds SQLite connection pool settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// LifecycleConfig controls how item status transitions are checked.
type LifecycleConfig struct {
	// StrictTransitions rejects transitions that are not edges of the status
	// machine. nil means true.
	StrictTransitions *bool `yaml:"strict_transitions"`
}

// Strict reports whether invalid transitions are rejected.
func (l LifecycleConfig) Strict() bool {
	return l.StrictTransitions == nil || *l.StrictTransitions
}

// TimelineConfig controls timeline rendering.
type TimelineConfig struct {
	// WeekStart is the lowercase English weekday name that begins a week.
	WeekStart string `yaml:"week_start"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Weekday returns the configured week start, defaulting to Monday.
func (t TimelineConfig) Weekday() time.Weekday {
	if wd, ok := weekdays[strings.ToLower(t.WeekStart)]; ok {
		return wd
	}
	return time.Monday
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			BusyTimeout:  5000,
		},
		Timeline: TimelineConfig{
			WeekStart: "monday",
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Timeline.WeekStart == "" {
		c.Timeline.WeekStart = defaults.Timeline.WeekStart
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}

	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}

	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout cannot be negative")
	}

	if _, ok := weekdays[strings.ToLower(c.Timeline.WeekStart)]; !ok {
		return fmt.Errorf("timeline.week_start %q is not a weekday", c.Timeline.WeekStart)
	}

	return nil
}
