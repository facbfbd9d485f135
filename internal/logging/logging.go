// Package logging provides structured logging with slog for the engine.
//
// Components obtain a named child logger via New; output format and level
// are configured once at startup. The zero configuration logs text at Info
// to stderr, which is what an IME host process wants by default.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format selects the output encoding.
type Format int

const (
	// FormatText outputs human-readable text logs.
	FormatText Format = iota
	// FormatJSON outputs JSON-structured logs.
	FormatJSON
)

// Config holds the logging configuration.
type Config struct {
	// Level is the minimum level to output.
	Level slog.Level

	// Format is the output encoding.
	Format Format

	// Output is where log lines are written. Defaults to stderr.
	Output io.Writer

	// Component is attached to every record as the "component" attribute.
	Component string
}

var (
	mu   sync.RWMutex
	root = newLogger(Config{})
)

// ParseLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	l := slog.New(h)
	if cfg.Component != "" {
		l = l.With("component", cfg.Component)
	}
	return l
}

// Init installs the process-wide root logger. Call once at startup.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	root = newLogger(cfg)
}

// New returns a child logger for a component.
func New(component string) *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.With("component", component)
}
