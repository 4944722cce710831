// Package config provides unified configuration loading for pdf-diff.
// Supports YAML files, environment variables, and command-line overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/pdf"
)

// Config holds all configuration for pdf-diff.
type Config struct {
	Comparison    ComparisonConfig    `yaml:"comparison"`
	Viewer        ViewerConfig        `yaml:"viewer"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ComparisonConfig is the immutable snapshot handed to the comparison
// components. It is passed by value.
type ComparisonConfig struct {
	DPI                   int  `yaml:"dpi"`
	ChannelTolerance      int  `yaml:"channel_tolerance"`
	PerPagePixelTolerance int  `yaml:"per_page_pixel_tolerance"`
	Grayscale             bool `yaml:"grayscale"`
	MarkDifferences       bool `yaml:"mark_differences"`
	SkipIdentical         bool `yaml:"skip_identical"`
	ThumbnailWidth        int  `yaml:"thumbnail_width"`
}

// ViewerConfig holds interactive viewer settings.
type ViewerConfig struct {
	ZoomStep   float64 `yaml:"zoom_step"`
	WatchFiles bool    `yaml:"watch_files"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

const (
	MaxChannelTolerance = 255
	MinThumbnailWidth   = 16
	MaxThumbnailWidth   = 1024
)

// Load reads configuration from a YAML file and applies environment overrides.
// The result is not validated; call Validate once all overrides are applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("read config file %s", path), err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("parse config file %s", path), err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Comparison: ComparisonConfig{
			DPI:            300,
			ThumbnailWidth: diff.DefaultThumbnailWidth,
		},
		Viewer: ViewerConfig{
			ZoomStep:   1.2,
			WatchFiles: true,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "warn",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors. Out-of-range values are
// reported with their valid range and never clamped.
func (c *Config) Validate() error {
	if err := c.Comparison.Validate(); err != nil {
		return err
	}

	if c.Viewer.ZoomStep <= 1 {
		return domain.ConfigError(fmt.Sprintf("zoom_step must be greater than 1, got %g", c.Viewer.ZoomStep), nil)
	}

	if !observability.ValidLevel(c.Observability.LogLevel) {
		return domain.ConfigError(fmt.Sprintf("invalid log level: %s", c.Observability.LogLevel), nil)
	}

	if c.Observability.LogFormat != "console" && c.Observability.LogFormat != "json" {
		return domain.ConfigError(fmt.Sprintf("invalid log format: %s (want console or json)", c.Observability.LogFormat), nil)
	}

	return nil
}

// Validate checks the comparison settings.
func (c ComparisonConfig) Validate() error {
	if c.DPI < pdf.MinDPI || c.DPI > pdf.MaxDPI {
		return domain.ConfigError(fmt.Sprintf("dpi must be between %d and %d, got %d", pdf.MinDPI, pdf.MaxDPI, c.DPI), nil)
	}

	if c.ChannelTolerance < 0 || c.ChannelTolerance > MaxChannelTolerance {
		return domain.ConfigError(fmt.Sprintf("channel tolerance must be between 0 and %d, got %d", MaxChannelTolerance, c.ChannelTolerance), nil)
	}

	if c.PerPagePixelTolerance < 0 {
		return domain.ConfigError(fmt.Sprintf("per-page pixel tolerance must be 0 or greater, got %d", c.PerPagePixelTolerance), nil)
	}

	if c.ThumbnailWidth < MinThumbnailWidth || c.ThumbnailWidth > MaxThumbnailWidth {
		return domain.ConfigError(fmt.Sprintf("thumbnail width must be between %d and %d, got %d", MinThumbnailWidth, MaxThumbnailWidth, c.ThumbnailWidth), nil)
	}

	return nil
}

// DiffOptions returns the pixel comparison options for this configuration.
func (c ComparisonConfig) DiffOptions() diff.Options {
	return diff.Options{
		ChannelTolerance: c.ChannelTolerance,
		PixelBudget:      c.PerPagePixelTolerance,
		Grayscale:        c.Grayscale,
		MarkDifferences:  c.MarkDifferences,
		ThumbnailWidth:   c.ThumbnailWidth,
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"PDFDIFF_DPI", &cfg.Comparison.DPI},
		{"PDFDIFF_CHANNEL_TOLERANCE", &cfg.Comparison.ChannelTolerance},
		{"PDFDIFF_PIXEL_TOLERANCE", &cfg.Comparison.PerPagePixelTolerance},
		{"PDFDIFF_THUMBNAIL_WIDTH", &cfg.Comparison.ThumbnailWidth},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return domain.ConfigError(fmt.Sprintf("%s must be an integer, got %q", e.name, v), err)
		}
		*e.dst = n
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"PDFDIFF_GRAYSCALE", &cfg.Comparison.Grayscale},
		{"PDFDIFF_MARK_DIFFERENCES", &cfg.Comparison.MarkDifferences},
		{"PDFDIFF_SKIP_IDENTICAL", &cfg.Comparison.SkipIdentical},
		{"PDFDIFF_WATCH", &cfg.Viewer.WatchFiles},
	}
	for _, e := range bools {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return domain.ConfigError(fmt.Sprintf("%s must be a boolean, got %q", e.name, v), err)
		}
		*e.dst = b
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	return nil
}
