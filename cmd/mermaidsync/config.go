package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/rendis/mermaidsync/internal/logging"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// Config holds all mermaidsync configuration.
// Priority: env vars > config.toml > defaults.
type Config struct {
	ListenAddr   string `toml:"listen_addr"`
	DBPath       string `toml:"db_path"`
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`
	Renderer     string `toml:"renderer"`
	MmdcPath     string `toml:"mmdc_path"`
	ASCIIBinDir  string `toml:"ascii_bin_dir"`
	Layout       string `toml:"layout"`
	DebounceMS   int    `toml:"debounce_ms"`
	AutosaveCron string `toml:"autosave_cron"`
	Panel        bool   `toml:"panel"`
}

var (
	renderers = []string{"auto", "mmdc", "graphviz", "ascii"}
	layouts   = []string{"graphviz", "grid"}
)

func defaultConfig() Config {
	return Config{
		ListenAddr:   ":4200",
		DBPath:       filepath.Join(mermaidsyncDir(), "mermaidsync.db"),
		LogLevel:     "info",
		LogFormat:    logging.FormatPretty,
		Renderer:     "auto",
		Layout:       "graphviz",
		DebounceMS:   300,
		AutosaveCron: "@every 30s",
		Panel:        true,
	}
}

func mermaidsyncDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mermaidsync"
	}
	return filepath.Join(home, ".mermaidsync")
}

func defaultConfigPath() string {
	return filepath.Join(mermaidsyncDir(), "config.toml")
}

// loadConfig layers path (ignored when missing) and MERMAIDSYNC_* env vars
// over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	// Layer 2: config.toml.
	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, schema.NewErrorf(schema.ErrCodeValidation, "read config %s", path).WithCause(err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return cfg, schema.NewErrorf(schema.ErrCodeValidation, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	// Layer 3: env vars override.
	if v := os.Getenv("MERMAIDSYNC_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("MERMAIDSYNC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MERMAIDSYNC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MERMAIDSYNC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("MERMAIDSYNC_RENDERER"); v != "" {
		cfg.Renderer = v
	}
	if v := os.Getenv("MERMAIDSYNC_MMDC_PATH"); v != "" {
		cfg.MmdcPath = v
	}
	if v := os.Getenv("MERMAIDSYNC_ASCII_BIN_DIR"); v != "" {
		cfg.ASCIIBinDir = v
	}
	if v := os.Getenv("MERMAIDSYNC_LAYOUT"); v != "" {
		cfg.Layout = v
	}
	if v := os.Getenv("MERMAIDSYNC_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DebounceMS = n
		}
	}
	if v := os.Getenv("MERMAIDSYNC_AUTOSAVE_CRON"); v != "" {
		cfg.AutosaveCron = v
	}
	if v := os.Getenv("MERMAIDSYNC_PANEL"); v != "" {
		cfg.Panel = v == "true" || v == "1"
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var problems []string
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("log_level %q", c.LogLevel))
	}
	if !slices.Contains([]string{logging.FormatPretty, logging.FormatText, logging.FormatJSON}, c.LogFormat) {
		problems = append(problems, fmt.Sprintf("log_format %q", c.LogFormat))
	}
	if !slices.Contains(renderers, c.Renderer) {
		problems = append(problems, fmt.Sprintf("renderer %q", c.Renderer))
	}
	if !slices.Contains(layouts, c.Layout) {
		problems = append(problems, fmt.Sprintf("layout %q", c.Layout))
	}
	if c.DebounceMS < 0 {
		problems = append(problems, fmt.Sprintf("debounce_ms %d", c.DebounceMS))
	}
	if len(problems) > 0 {
		return schema.NewErrorf(schema.ErrCodeValidation, "invalid config: %s", strings.Join(problems, ", "))
	}
	return nil
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	PanelChanged    bool
	LogLevelChanged bool
	RendererChanged bool
	RestartNeeded   []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.Panel != new.Panel {
		d.PanelChanged = true
	}
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.Renderer != new.Renderer || old.MmdcPath != new.MmdcPath || old.ASCIIBinDir != new.ASCIIBinDir {
		d.RendererChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.LogFormat != new.LogFormat {
		d.RestartNeeded = append(d.RestartNeeded, "log_format")
	}
	if old.Layout != new.Layout {
		d.RestartNeeded = append(d.RestartNeeded, "layout")
	}
	if old.DebounceMS != new.DebounceMS {
		d.RestartNeeded = append(d.RestartNeeded, "debounce_ms")
	}
	if old.AutosaveCron != new.AutosaveCron {
		d.RestartNeeded = append(d.RestartNeeded, "autosave_cron")
	}
	return d
}
