package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel_KnownNames(t *testing.T) {
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelTrace, ParseLevel("trace"))
	assert.Equal(t, Disabled, ParseLevel("off"))
}

func TestParseLevel_UnknownFallsBackToInfo(t *testing.T) {
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestLogger_SuppressesBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Debug("should not appear")
	l.Error("should appear")
	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestLogger_DisabledDropsEverything(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Disabled)
	l.Error("nope")
	assert.Empty(t, buf.String())
}

func TestNilLogger_IsSafeToCall(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("anything")
		l.Error("anything")
	})
}

func TestDiscard_DropsEverything(t *testing.T) {
	l := Discard()
	l.Error("nope")
}

func TestLogger_FormatsArgs(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo)
	l.Info("count=%d name=%s", 3, "foo")
	assert.True(t, strings.Contains(buf.String(), "count=3 name=foo"))
}
