package parser

import (
	"io"
	"log/slog"
)

// Logger receives structured diagnostics from every pipeline stage.
// Attributes are slog-style alternating keys and values:
//
//	logger.Debug("wrote fragment", "path", "paths/cast/search.yaml", "bytes", 412)
//
// Per-entity detail goes to Debug, stage progress to Info, and recoverable
// conditions (a missing section, an unsplittable path, a duplicated
// fragment) to Warn.
type Logger interface {
	Debug(msg string, attrs ...any)
	Info(msg string, attrs ...any)
	Warn(msg string, attrs ...any)
	Error(msg string, attrs ...any)
	With(attrs ...any) Logger
}

// NopLogger discards everything. Components use it when no Logger is set.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any) {}
func (NopLogger) Warn(string, ...any) {}
func (NopLogger) Error(string, ...any) {}
func (n NopLogger) With(...any) Logger { return n }

// SlogAdapter lets a *slog.Logger serve as a Logger.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter wraps l, or slog.Default() when l is nil.
func NewSlogAdapter(l *slog.Logger) SlogAdapter {
	if l == nil {
		l = slog.Default()
	}
	return SlogAdapter{Logger: l}
}

// NewTextLogger returns a Logger writing slog text records at or above
// level to w.
func NewTextLogger(w io.Writer, level slog.Level) SlogAdapter {
	return NewSlogAdapter(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// With returns an adapter whose records carry attrs.
func (s SlogAdapter) With(attrs ...any) Logger {
	return SlogAdapter{Logger: s.Logger.With(attrs...)}
}

// ForStage tags every record of l with the pipeline stage name. A nil l
// yields a NopLogger.
func ForStage(l Logger, stage string) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l.With("stage", stage)
}

var (
	_ Logger = NopLogger{}
	_ Logger = SlogAdapter{}
)
