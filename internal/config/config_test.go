package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SemiMajorAxisThreshold() != DefaultSemiMajorAxisThresholdKm {
		t.Errorf("Expected default semi-major axis threshold, got %f", cfg.SemiMajorAxisThreshold())
	}
	if cfg.InclinationThreshold() != DefaultInclinationThresholdDeg {
		t.Errorf("Expected default inclination threshold, got %f", cfg.InclinationThreshold())
	}
	if cfg.Interval() != DefaultSyncInterval {
		t.Errorf("Expected default interval, got %v", cfg.Interval())
	}
	if cfg.Timeout() != DefaultFetchTimeout {
		t.Errorf("Expected default timeout, got %v", cfg.Timeout())
	}
	if cfg.SourceName() != DefaultSource {
		t.Errorf("Expected default source, got %q", cfg.SourceName())
	}
	if cfg.URL() != "" {
		t.Errorf("Expected empty URL override, got %q", cfg.URL())
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	path := writeConfigFile(t, `{
		"semi_major_axis_threshold_km": 0.05,
		"sync_interval": "30m"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.SemiMajorAxisThreshold() != 0.05 {
		t.Errorf("Expected threshold 0.05, got %f", cfg.SemiMajorAxisThreshold())
	}
	if cfg.Interval() != 30*time.Minute {
		t.Errorf("Expected interval 30m, got %v", cfg.Interval())
	}
	// Unset fields keep their defaults.
	if cfg.InclinationThreshold() != DefaultInclinationThresholdDeg {
		t.Errorf("Expected default inclination threshold, got %f", cfg.InclinationThreshold())
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"semi_major_axis_threshold_km": 0.02,
		"inclination_threshold_deg": 0.01,
		"geo_tolerance_km": 200,
		"sync_interval": "2h",
		"fetch_timeout": "1m",
		"source_url": "https://example.com/sats",
		"source": "custom_source"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.GeoTolerance() != 200 {
		t.Errorf("Expected geo tolerance 200, got %f", cfg.GeoTolerance())
	}
	if cfg.Timeout() != time.Minute {
		t.Errorf("Expected timeout 1m, got %v", cfg.Timeout())
	}
	if cfg.URL() != "https://example.com/sats" {
		t.Errorf("Expected source URL override, got %q", cfg.URL())
	}
	if cfg.SourceName() != "custom_source" {
		t.Errorf("Expected custom source name, got %q", cfg.SourceName())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"malformed json", `{not json`},
		{"negative threshold", `{"semi_major_axis_threshold_km": -1}`},
		{"zero threshold", `{"inclination_threshold_deg": 0}`},
		{"negative geo tolerance", `{"geo_tolerance_km": -10}`},
		{"bad interval", `{"sync_interval": "soon"}`},
		{"bad timeout", `{"fetch_timeout": "later"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.contents)
			if _, err := Load(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoad_RejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}
