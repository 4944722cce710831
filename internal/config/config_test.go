package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/domain"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 300, cfg.Comparison.DPI)
	assert.Zero(t, cfg.Comparison.ChannelTolerance)
	assert.Zero(t, cfg.Comparison.PerPagePixelTolerance)
	assert.Equal(t, diff.DefaultThumbnailWidth, cfg.Comparison.ThumbnailWidth)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdf-diff.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
comparison:
  dpi: 150
  channel_tolerance: 12
  per_page_pixel_tolerance: 40
  grayscale: true
  mark_differences: true
viewer:
  zoom_step: 1.5
observability:
  log_level: debug
  log_format: json
`), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 150, cfg.Comparison.DPI)
	assert.Equal(t, 12, cfg.Comparison.ChannelTolerance)
	assert.Equal(t, 40, cfg.Comparison.PerPagePixelTolerance)
	assert.True(t, cfg.Comparison.Grayscale)
	assert.True(t, cfg.Comparison.MarkDifferences)
	assert.False(t, cfg.Comparison.SkipIdentical)
	// untouched keys keep their defaults
	assert.Equal(t, diff.DefaultThumbnailWidth, cfg.Comparison.ThumbnailWidth)
	assert.Equal(t, 1.5, cfg.Viewer.ZoomStep)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Equal(t, domain.ErrorTypeConfig, domain.TypeOf(err))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("comparison: ["), 0o644))
		_, err := Load(path)
		require.Error(t, err)
		assert.Equal(t, domain.ExitUsage, domain.ExitCode(err))
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PDFDIFF_DPI", "72")
	t.Setenv("PDFDIFF_CHANNEL_TOLERANCE", "3")
	t.Setenv("PDFDIFF_SKIP_IDENTICAL", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 72, cfg.Comparison.DPI)
	assert.Equal(t, 3, cfg.Comparison.ChannelTolerance)
	assert.True(t, cfg.Comparison.SkipIdentical)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("PDFDIFF_DPI", "high")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDFDIFF_DPI")
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"dpi zero", func(c *Config) { c.Comparison.DPI = 0 }, "between 1 and 2400"},
		{"dpi too high", func(c *Config) { c.Comparison.DPI = 2401 }, "between 1 and 2400"},
		{"dpi max", func(c *Config) { c.Comparison.DPI = 2400 }, ""},
		{"negative tolerance", func(c *Config) { c.Comparison.ChannelTolerance = -1 }, "between 0 and 255"},
		{"tolerance too high", func(c *Config) { c.Comparison.ChannelTolerance = 256 }, "between 0 and 255"},
		{"tolerance max", func(c *Config) { c.Comparison.ChannelTolerance = 255 }, ""},
		{"negative pixel tolerance", func(c *Config) { c.Comparison.PerPagePixelTolerance = -5 }, "0 or greater"},
		{"thumbnail too small", func(c *Config) { c.Comparison.ThumbnailWidth = 4 }, "thumbnail width"},
		{"zoom step", func(c *Config) { c.Viewer.ZoomStep = 1 }, "zoom_step"},
		{"log level", func(c *Config) { c.Observability.LogLevel = "loud" }, "log level"},
		{"log format", func(c *Config) { c.Observability.LogFormat = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, domain.ExitUsage, domain.ExitCode(err))
		})
	}
}

func TestComparisonConfig_DiffOptions(t *testing.T) {
	c := ComparisonConfig{
		DPI:                   300,
		ChannelTolerance:      7,
		PerPagePixelTolerance: 11,
		Grayscale:             true,
		MarkDifferences:       true,
		ThumbnailWidth:        64,
	}

	opts := c.DiffOptions()

	assert.Equal(t, 7, opts.ChannelTolerance)
	assert.Equal(t, 11, opts.PixelBudget)
	assert.True(t, opts.Grayscale)
	assert.True(t, opts.MarkDifferences)
	assert.Equal(t, 64, opts.ThumbnailWidth)
	assert.False(t, opts.WantThumbnail)
	assert.Equal(t, diff.Offset{}, opts.Offset)
}
