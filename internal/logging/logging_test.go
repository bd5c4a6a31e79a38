package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn, false)

	l.Debug("hidden %d", 1)
	l.Info("hidden too")
	l.Warn("fallback used for %s", "parse")
	l.Error("boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: fallback used for parse")
	assert.Contains(t, out, "ERROR: boom")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("whatever"))
}

func TestDiscardAndNilAreSilent(t *testing.T) {
	var l *Logger
	assert.False(t, l.Enabled(LevelError))
	d := Discard()
	assert.False(t, d.Enabled(LevelError))
	d.Error("nothing")
}
