package logger

import (
	"io"
	"log/slog"
	"time"
)

// NewSlogLogger returns a JSON logger writing to w, intended for tests and
// tools that need to inspect output. A nil writer discards everything.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if w == nil {
		w = io.Discard
	}
	lvl := parseLogLevel(string(level))
	return &moduleLogger{
		logger: slog.New(newJSONHandler(w, lvl, tz)),
		level:  lvl,
	}
}

// NewNopLogger discards all output.
func NewNopLogger() Logger {
	return NewSlogLogger(io.Discard, LogLevelError, time.UTC)
}
