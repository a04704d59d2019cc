// Package logging builds the slog logger used by every cloudburn command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/config"
)

// Formats accepted in [log] format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Logger is a slog.Logger whose level can be changed after construction,
// so a config reload can raise or lower verbosity without rebuilding
// handlers.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New builds a logger from cfg writing to w (stderr when nil).
func New(cfg config.LogConfig, w io.Writer) (*Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lv := new(slog.LevelVar)
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	lv.Set(level)

	opts := &slog.HandlerOptions{Level: lv}
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", FormatText:
		h = slog.NewTextHandler(w, opts)
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", cfg.Format)
	}
	return &Logger{Logger: slog.New(h), level: lv}, nil
}

// SetLevel changes the minimum level of l and every logger derived from it.
func (l *Logger) SetLevel(s string) error {
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.level.Set(level)
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level { return l.level.Level() }

// ParseLevel maps debug, info, warn and error to slog levels. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
