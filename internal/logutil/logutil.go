// Package logutil provides the client's unified logging surface.
//
// It wraps log/slog with per-subsystem level overrides, configured through
// an environment variable:
//
//	P2PD_LOG_LEVEL: subsystem=level,subsystem=level,defaultLevel
//	                e.g. "control=debug,listener=warn,info"
//
// Callers obtain a subsystem logger with Logger("control") and use it like
// any *slog.Logger.
package logutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	loggers  sync.Map // map[string]*slog.Logger
	handlers sync.Map // map[string]*subsystemHandler

	outputMu sync.RWMutex
	output   io.Writer = os.Stderr
)

// Logger returns the cached logger for subsystem, creating it on first use.
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := configFromEnv()
	h := newHandler(subsystem, cfg.levelFor(subsystem))
	l := slog.New(h)

	actual, _ := loggers.LoadOrStore(subsystem, l)
	handlers.Store(subsystem, h)
	return actual.(*slog.Logger)
}

// SetLevel adjusts the level of an already-created subsystem logger.
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).setLevel(level)
	}
}

// SetOutput redirects all logger output. Safe to call after loggers have
// been created since the handler reads the target dynamically.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

// Discard returns a logger that drops every record; useful in tests.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

type dynamicWriter struct{}

func (dynamicWriter) Write(p []byte) (int, error) {
	outputMu.RLock()
	w := output
	outputMu.RUnlock()
	return w.Write(p)
}

type subsystemHandler struct {
	mu    sync.RWMutex
	level slog.Level
	inner slog.Handler
}

func newHandler(subsystem string, level slog.Level) *subsystemHandler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}
	inner := slog.NewTextHandler(dynamicWriter{}, opts).WithAttrs([]slog.Attr{
		slog.String("subsystem", subsystem),
	})
	return &subsystemHandler{level: level, inner: inner}
}

func (h *subsystemHandler) Enabled(ctx context.Context, level slog.Level) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return level >= h.level
}

func (h *subsystemHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *subsystemHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return &subsystemHandler{level: h.level, inner: h.inner.WithAttrs(attrs)}
}

func (h *subsystemHandler) WithGroup(name string) slog.Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return &subsystemHandler{level: h.level, inner: h.inner.WithGroup(name)}
}

func (h *subsystemHandler) setLevel(level slog.Level) {
	h.mu.Lock()
	h.level = level
	h.mu.Unlock()
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

type envConfig struct {
	defaultLevel slog.Level
	subsystems   map[string]slog.Level
}

func (c envConfig) levelFor(subsystem string) slog.Level {
	if l, ok := c.subsystems[subsystem]; ok {
		return l
	}
	return c.defaultLevel
}

func configFromEnv() envConfig {
	cfg := envConfig{defaultLevel: slog.LevelInfo, subsystems: map[string]slog.Level{}}
	raw := os.Getenv("P2PD_LOG_LEVEL")
	if raw == "" {
		return cfg
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if kv := strings.SplitN(part, "=", 2); len(kv) == 2 {
			if lvl, ok := parseLevel(kv[1]); ok {
				cfg.subsystems[strings.TrimSpace(kv[0])] = lvl
			}
			continue
		}
		if lvl, ok := parseLevel(part); ok {
			cfg.defaultLevel = lvl
		}
	}
	return cfg
}

func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
