package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. Stages never log through package state;
// the engine derives per-sample sub-loggers from this one so concurrent
// pipeline invocations log independently.
func New(level string) zerolog.Logger {
	return NewWriter(os.Stderr, level)
}

// NewWriter is New with an explicit sink, used by tests.
func NewWriter(w io.Writer, level string) zerolog.Logger {
	lvl := parseLevel(level)
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "", "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
