// Package logx holds the structured logger shared by every vecfield package.
//
// By default nothing is logged. The embedding application installs a real
// logger once at startup:
//
//	logx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
//
// Levels used:
//   - [slog.LevelDebug]: per-frame and per-buffer diagnostics
//   - [slog.LevelInfo]: lifecycle events (device selected, recording finished)
//   - [slog.LevelWarn]: recoverable failures (dropped frame, strategy failed)
//   - [slog.LevelError]: failures surfaced to the caller
package logx

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger replaces the package logger. Passing nil restores the silent default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// L returns the current logger. Safe for concurrent use.
func L() *slog.Logger {
	return loggerPtr.Load()
}

// ParseLevel maps a flag value onto a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
