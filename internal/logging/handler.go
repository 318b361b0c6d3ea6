package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	charmlog "github.com/charmbracelet/log"

	"github.com/rendis/mermaidsync/pkg/schema"
)

// Output formats accepted by NewHandler.
const (
	FormatPretty = "pretty"
	FormatText   = "text"
	FormatJSON   = "json"
)

// ParseLevel maps "debug", "info", "warn" and "error" to an slog level.
// The empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, schema.NewErrorf(schema.ErrCodeValidation, "invalid log level %q", s).WithCause(err)
	}
	return lvl, nil
}

// NewHandler builds the process log handler wrapped in a CorrelationHandler.
// "pretty" uses charmbracelet/log for terminal output; "text" and "json"
// use the slog handlers.
func NewHandler(w io.Writer, format, level string) (slog.Handler, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	v := &slog.LevelVar{}
	v.Set(lvl)
	return NewLevelHandler(w, format, v)
}

// NewLevelHandler is NewHandler with a level that can be changed while the
// process runs.
func NewLevelHandler(w io.Writer, format string, level *slog.LevelVar) (slog.Handler, error) {
	var inner slog.Handler
	switch strings.ToLower(format) {
	case "", FormatPretty:
		inner = levelGate{
			Handler: charmlog.NewWithOptions(w, charmlog.Options{
				ReportTimestamp: true,
				TimeFormat:      "15:04:05.00",
				Level:           charmlog.DebugLevel,
			}),
			level: level,
		}
	case FormatText:
		inner = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case FormatJSON:
		inner = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown log format %q", format)
	}
	return NewCorrelationHandler(inner), nil
}

// levelGate filters a handler whose own level is fixed.
type levelGate struct {
	slog.Handler
	level slog.Leveler
}

func (g levelGate) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= g.level.Level() && g.Handler.Enabled(ctx, l)
}

func (g levelGate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelGate{Handler: g.Handler.WithAttrs(attrs), level: g.level}
}

func (g levelGate) WithGroup(name string) slog.Handler {
	return levelGate{Handler: g.Handler.WithGroup(name), level: g.level}
}

// NewLogger is NewHandler wrapped in an *slog.Logger.
func NewLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	h, err := NewHandler(w, format, level)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}
