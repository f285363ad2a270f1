// Package observability wires structured logging and Prometheus metrics
// for odpcore's services.
package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds a plain slog.Logger for components that don't need the
// zerolog/request-context bridge (internal/logger), e.g. cmd/ wiring code.
func NewLogger(level string) *slog.Logger {
	logLevel := new(slog.LevelVar)
	switch level {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(h)
}
