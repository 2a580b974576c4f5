// Package logging provides the module-wide structured logger. By default all
// output is discarded; hosts opt in by calling Set with a configured
// slog.Logger.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely, making
// disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// loggerPtr stores the active logger. Accessed atomically so that Set can be
// called concurrently with logging from any goroutine, including the engine
// thread mid-frame.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := slog.New(nopHandler{})
	loggerPtr.Store(l)
}

// Set configures the logger for the interop module and all its packages.
// Pass nil to disable logging (restore the default silent behavior).
//
// Log levels used by the module:
//   - slog.LevelDebug: stale-handle no-ops, per-frame diagnostics
//   - slog.LevelInfo: lifecycle events (surface committed, view created)
//   - slog.LevelWarn: non-fatal issues (resource creation failure, size mismatch)
//   - slog.LevelError: swallowed pass errors and recovered panics
func Set(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// L returns the active logger.
func L() *slog.Logger {
	return loggerPtr.Load()
}
