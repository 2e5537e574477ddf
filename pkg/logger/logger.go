// Package logger constructs the structured loggers used throughout ignitedb.
// Every subsystem receives a *zap.SugaredLogger tagged with its own service name so that
// log lines from the WAL, the merger, and the engine can be told apart in aggregate output.
package logger

import (
	"go.uber.org/zap"
)

// New builds a production-mode sugared logger tagged with the given service name.
// Falls back to a no-op logger if zap's production config cannot be built, which only
// happens when the process has no writable stderr/stdout - a condition callers cannot
// recover from anyway.
func New(service string) *zap.SugaredLogger {
	base, err := zap.NewProduction()
	if err != nil {
		base = zap.NewNop()
	}
	return base.With(zap.String("service", service)).Sugar()
}

// NewDevelopment builds a human-readable, colorized logger for local runs and tests.
func NewDevelopment(service string) *zap.SugaredLogger {
	base, err := zap.NewDevelopment()
	if err != nil {
		base = zap.NewNop()
	}
	return base.With(zap.String("service", service)).Sugar()
}

// Noop returns a logger that discards everything, for use in tests that don't care about
// log output.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
