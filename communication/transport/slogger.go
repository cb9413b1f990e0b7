package transport

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// SLogger is the structured logger used for per-connection I/O tracing.
// *slog.Logger implements it.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// DefaultSLogger returns an SLogger that discards everything
func DefaultSLogger() SLogger {
	return discardSLogger{}
}

type discardSLogger struct{}

var _ SLogger = discardSLogger{}

func (discardSLogger) Debug(msg string, args ...any) {}

func (discardSLogger) Info(msg string, args ...any) {}

// NewSpanID returns a time ordered identifier for a connection, used to correlate
// the structured log records of one connection
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
