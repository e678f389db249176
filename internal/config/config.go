// Package config loads the optional JSON configuration file for the
// ingestion pipeline. Fields omitted from the file keep their built-in
// defaults, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// maxConfigFileSize guards against accidentally loading a huge file.
const maxConfigFileSize = 1 << 20 // 1 MB

// Config holds the tunable pipeline parameters. The schema uses pointer
// fields so a partial file only overrides what it names.
type Config struct {
	// Detection thresholds
	SemiMajorAxisThresholdKm *float64 `json:"semi_major_axis_threshold_km,omitempty"`
	InclinationThresholdDeg  *float64 `json:"inclination_threshold_deg,omitempty"`
	GeoToleranceKm           *float64 `json:"geo_tolerance_km,omitempty"`

	// Cycle scheduling
	SyncInterval *string `json:"sync_interval,omitempty"` // duration string like "1h"
	FetchTimeout *string `json:"fetch_timeout,omitempty"` // duration string like "30s"

	// Upstream source
	SourceURL *string `json:"source_url,omitempty"`
	Source    *string `json:"source,omitempty"` // lineage source identifier
}

// Defaults, matching the reference deployment.
const (
	DefaultSemiMajorAxisThresholdKm = 0.01
	DefaultInclinationThresholdDeg  = 0.005
	DefaultGeoToleranceKm           = 150.0
	DefaultSyncInterval             = time.Hour
	DefaultFetchTimeout             = 30 * time.Second
	DefaultSource                   = "keeptrack_v2"
)

// Load reads a Config from a JSON file. An empty path returns an empty
// config (all defaults).
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for values that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.SemiMajorAxisThresholdKm != nil && *c.SemiMajorAxisThresholdKm <= 0 {
		return fmt.Errorf("semi_major_axis_threshold_km must be positive, got %f", *c.SemiMajorAxisThresholdKm)
	}
	if c.InclinationThresholdDeg != nil && *c.InclinationThresholdDeg <= 0 {
		return fmt.Errorf("inclination_threshold_deg must be positive, got %f", *c.InclinationThresholdDeg)
	}
	if c.GeoToleranceKm != nil && *c.GeoToleranceKm < 0 {
		return fmt.Errorf("geo_tolerance_km must not be negative, got %f", *c.GeoToleranceKm)
	}
	if c.SyncInterval != nil {
		if _, err := time.ParseDuration(*c.SyncInterval); err != nil {
			return fmt.Errorf("invalid sync_interval: %w", err)
		}
	}
	if c.FetchTimeout != nil {
		if _, err := time.ParseDuration(*c.FetchTimeout); err != nil {
			return fmt.Errorf("invalid fetch_timeout: %w", err)
		}
	}
	return nil
}

// SemiMajorAxisThreshold returns the configured or default Δa threshold.
func (c *Config) SemiMajorAxisThreshold() float64 {
	if c.SemiMajorAxisThresholdKm != nil {
		return *c.SemiMajorAxisThresholdKm
	}
	return DefaultSemiMajorAxisThresholdKm
}

// InclinationThreshold returns the configured or default Δi threshold.
func (c *Config) InclinationThreshold() float64 {
	if c.InclinationThresholdDeg != nil {
		return *c.InclinationThresholdDeg
	}
	return DefaultInclinationThresholdDeg
}

// GeoTolerance returns the configured or default GEO band half-width.
func (c *Config) GeoTolerance() float64 {
	if c.GeoToleranceKm != nil {
		return *c.GeoToleranceKm
	}
	return DefaultGeoToleranceKm
}

// Interval returns the configured or default cycle interval.
func (c *Config) Interval() time.Duration {
	if c.SyncInterval != nil {
		if d, err := time.ParseDuration(*c.SyncInterval); err == nil {
			return d
		}
	}
	return DefaultSyncInterval
}

// Timeout returns the configured or default upstream fetch timeout.
func (c *Config) Timeout() time.Duration {
	if c.FetchTimeout != nil {
		if d, err := time.ParseDuration(*c.FetchTimeout); err == nil {
			return d
		}
	}
	return DefaultFetchTimeout
}

// URL returns the configured upstream endpoint, or empty for default.
func (c *Config) URL() string {
	if c.SourceURL != nil {
		return *c.SourceURL
	}
	return ""
}

// SourceName returns the lineage source identifier.
func (c *Config) SourceName() string {
	if c.Source != nil && *c.Source != "" {
		return *c.Source
	}
	return DefaultSource
}
