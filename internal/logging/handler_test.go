package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/pkg/schema"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("chatty")
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestNewHandlerJSONCarriesCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, FormatJSON, "debug")
	require.NoError(t, err)

	ctx := WithDocumentID(context.Background(), "doc-9")
	logger.DebugContext(ctx, "saved")

	assert.Contains(t, buf.String(), `"document_id":"doc-9"`)
	assert.Contains(t, buf.String(), `"msg":"saved"`)
}

func TestNewHandlerTextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, FormatText, "warn")
	require.NoError(t, err)

	logger.Info("quiet")
	assert.Empty(t, buf.String())

	logger.Warn("loud")
	assert.Contains(t, buf.String(), "msg=loud")
}

func TestNewHandlerPretty(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, FormatPretty, "info")
	require.NoError(t, err)

	ctx := WithSessionID(context.Background(), "sess-4")
	logger.InfoContext(ctx, "preview ready")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "preview ready")
	assert.Contains(t, out, "sess-4")
	assert.NotContains(t, out, "hidden")
}

func TestNewHandlerUnknownFormat(t *testing.T) {
	_, err := NewHandler(&bytes.Buffer{}, "xml", "info")
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestNewLevelHandlerChangesAtRuntime(t *testing.T) {
	for _, format := range []string{FormatPretty, FormatText} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			lvl := &slog.LevelVar{}
			lvl.Set(slog.LevelWarn)
			h, err := NewLevelHandler(&buf, format, lvl)
			require.NoError(t, err)
			logger := slog.New(h).With("component", "panel")

			logger.Info("before")
			assert.NotContains(t, buf.String(), "before")

			lvl.Set(slog.LevelDebug)
			logger.Debug("after")
			assert.Contains(t, buf.String(), "after")
		})
	}
}
