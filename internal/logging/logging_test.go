package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{JSON: true, Writer: &buf})

	l.Info().Str("target", "/").Msg("checked")
	l.Debug().Msg("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug must be filtered at info level")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "/", entry["target"])
	assert.Contains(t, entry, "time")
}

func TestDebugOption(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{JSON: true, Debug: true, Writer: &buf})
	l.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestFailLevelJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{JSON: true, Writer: &buf})

	Fail(&l).Str("rule", "root").Msg("Rule 'root' failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, FailLevel, entry["level"])
	assert.Equal(t, "root", entry["rule"])
}

func TestFailLevelConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{NoColor: true, Writer: &buf})

	Fail(&l).Msg("disk full")
	l.Warn().Msg("careful")

	out := buf.String()
	assert.Contains(t, out, "FAIL disk full")
	assert.Contains(t, out, "WAR careful")
}

func TestWithRunAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := WithComponent(WithRun(New(Options{JSON: true, Writer: &buf}), "abc-123"), "engine")
	l.Info().Msg("x")

	assert.Contains(t, buf.String(), `"run_id":"abc-123"`)
	assert.Contains(t, buf.String(), `"component":"engine"`)
}
