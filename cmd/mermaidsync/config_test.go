package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/pkg/schema"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, "auto", cfg.Renderer)
	assert.True(t, cfg.Panel)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
listen_addr = ":9000"
renderer = "ascii"
layout = "grid"
debounce_ms = 50
panel = false
`)
	t.Setenv("MERMAIDSYNC_LISTEN_ADDR", ":9100")
	t.Setenv("MERMAIDSYNC_DEBOUNCE_MS", "75")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, "ascii", cfg.Renderer)
	assert.Equal(t, "grid", cfg.Layout)
	assert.Equal(t, 75, cfg.DebounceMS)
	assert.False(t, cfg.Panel)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	path := writeConfig(t, "pool_size = 10\n")
	_, err := loadConfig(path)
	require.Error(t, err)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
	assert.Contains(t, err.Error(), "pool_size")
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfig(t, "renderer = \n")
	_, err := loadConfig(path)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"renderer", `renderer = "dot"`, "renderer"},
		{"layout", `layout = "force"`, "layout"},
		{"log level", `log_level = "loud"`, "log_level"},
		{"log format", `log_format = "xml"`, "log_format"},
		{"debounce", `debounce_ms = -1`, "debounce_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDiffConfigs(t *testing.T) {
	base := defaultConfig()

	d := diffConfigs(base, base)
	assert.False(t, d.PanelChanged)
	assert.False(t, d.LogLevelChanged)
	assert.False(t, d.RendererChanged)
	assert.Empty(t, d.RestartNeeded)

	next := base
	next.Panel = !base.Panel
	next.LogLevel = "debug"
	next.MmdcPath = "/opt/mmdc"
	next.ListenAddr = ":1"
	next.AutosaveCron = "@every 1m"

	d = diffConfigs(base, next)
	assert.True(t, d.PanelChanged)
	assert.True(t, d.LogLevelChanged)
	assert.True(t, d.RendererChanged)
	assert.Equal(t, []string{"listen_addr", "autosave_cron"}, d.RestartNeeded)
}
