package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: InfoLevel, Output: &buf})

	l.Debug("hidden")
	l.Info("built unit", "unit", 7, "edges", 12)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO: built unit unit=7 edges=12")
	assert.NotContains(t, out, "\033[", "buffers are never colored")
}

func TestLogger_JSONOutputWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: DebugLevel, JSONOutput: true, Output: &buf})

	child := l.With("run_id", "r1")
	child.Warn("method failed", "method", "main", "error", errors.New("too deep"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "method failed", entry["message"])
	assert.Equal(t, "r1", entry["run_id"])
	assert.Equal(t, "main", entry["method"])
	assert.Equal(t, "too deep", entry["error"])
}

func TestLogger_ChildSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LoggerConfig{Level: InfoLevel, Output: &buf})
	child := l.With("k", "v")

	l.SetLevel(ErrorLevel)
	child.Warn("dropped")
	child.Error("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "kept k=v")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("loud"))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error("nothing", "a", 1)
	})
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
