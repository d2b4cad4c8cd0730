// Package logger provides the structured, module-aware logging used across cardoc.
//
// It is a thin layer over log/slog:
//
//   - module-scoped loggers ("diagnosis", "diagnosis.audio", ...)
//   - typed field constructors instead of loose key/value pairs
//   - trace ID extraction from context.Context
//   - console text output plus an optional JSON log file
//
// Typical use:
//
//	cl, err := logger.NewCentralLogger(&cfg)
//	if err != nil {
//	    return err
//	}
//	logger.SetGlobal(cl)
//	log := logger.Global().Module("api")
//	log.Info("listening", logger.String("addr", addr))
//
// Components receive a Logger through their constructors; the global logger is
// only a fallback for package-level helpers.
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel is a textual log level as used in configuration files.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Well-known attribute keys.
const (
	moduleKey  = "module"
	traceIDKey = "trace_id"
	errorKey   = "error"
)

// Field is a single structured logging attribute.
type Field struct {
	Key   string
	Value any
}

// internKey deduplicates the backing storage of frequently repeated keys.
func internKey(key string) string {
	return unique.Make(key).Value()
}

// Logger is the logging interface injected into components.
type Logger interface {
	// Module returns a child logger whose module name is appended with a dot.
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every record.
	With(fields ...Field) Logger

	// WithContext returns a logger carrying the trace ID found in ctx, if any.
	WithContext(ctx context.Context) Logger

	// Log writes a record at an explicit level.
	Log(level LogLevel, msg string, fields ...Field)

	// Flush writes any buffered output.
	Flush() error
}

func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: internKey(key), Value: value}
}

func Float32(key string, value float32) Field {
	return Field{Key: internKey(key), Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates a field under the "error" key. A nil error yields a nil value.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

func Strings(key string, values []string) Field {
	return Field{Key: internKey(key), Value: values}
}

func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
