package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
		ServiceName: "pdf-diff",
		RunID:       "run-1",
	})

	logger.WithComponent("compare").Info().Int("page", 3).Bool("changed", true).Err(errors.New("boom")).Msg("Page differs")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "pdf-diff", entry["service"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "compare", entry["component"])
	assert.Equal(t, float64(3), entry["page"])
	assert.Equal(t, true, entry["changed"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "Page differs", entry["message"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	assert.NotPanics(t, func() {
		logger.Debug().Str("k", "v").Msg("ignored")
		logger.With().Str("k", "v").Logger().Error().Msgf("%d", 1)
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.True(t, ValidLevel("debug"))
	assert.False(t, ValidLevel("bogus"))
}
