package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_FieldsAndModule(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC).Module("diagnosis").Module("audio")

	log.Info("analysis completed",
		String("filename", "idle.wav"),
		Int("faults", 2),
		Float64("confidence", 0.123456),
		Error(errors.New("boom")))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "diagnosis.audio", lines[0]["module"])
	assert.Equal(t, "idle.wav", lines[0]["filename"])
	assert.InDelta(t, 2, lines[0]["faults"], 0)
	assert.InDelta(t, 0.123, lines[0]["confidence"], 1e-9)
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelWarn, time.UTC)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Log(LogLevelError, "shown too")

	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestSlogLogger_TraceLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSlogLogger(&buf, LogLevelTrace, time.UTC).Trace("sql query")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "TRACE", lines[0]["level"])
}

func TestWithContext_AddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := WithTraceID(context.Background(), "req-42")
	NewSlogLogger(&buf, LogLevelInfo, time.UTC).WithContext(ctx).Info("request")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-42", lines[0]["trace_id"])
}

func TestWith_DoesNotLeakIntoParent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := NewSlogLogger(&buf, LogLevelInfo, time.UTC)
	child := parent.With(String("diagnostic_id", "abc"))

	child.Info("child")
	parent.Info("parent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "abc", lines[0]["diagnostic_id"])
	assert.NotContains(t, lines[1], "diagnostic_id")
}

func TestCentralLogger_ModuleLevelInheritance(t *testing.T) {
	t.Parallel()

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "warn",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		ModuleLevels: map[string]string{"diagnosis": "debug"},
	})
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cl.levelForLocked("diagnosis.audio"))
	assert.Equal(t, slog.LevelWarn, cl.levelForLocked("api"))

	cl.SetModuleLevel("api", LogLevelTrace)
	assert.Equal(t, traceLevelValue, cl.levelForLocked("api.v2"))
}

func TestCentralLogger_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "cardoc.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "info"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	cl.Module("test").Info("written to file", Bool("ok", true))
	require.NoError(t, cl.Flush())
	assert.FileExists(t, path)
}

func TestNewCentralLogger_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(nil)
	require.Error(t, err)

	_, err = NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	require.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"trace":   traceLevelValue,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}
