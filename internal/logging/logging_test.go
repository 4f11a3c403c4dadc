package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "NOTICE", LevelNotice.String())
	assert.Equal(t, "WARNING", LevelWarning.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"warning": LevelWarning,
		"warn":    LevelWarning,
		"error":   LevelError,
		"alert":   LevelError,
		"emerg":   LevelError,
		"crit":    LevelError,
		"notice":  LevelNotice,
		"":        LevelNotice,
		"bogus":   LevelNotice,
	}
	for input, want := range cases {
		assert.Equal(t, want, ParseLevel(input), "input=%q", input)
	}
}

func TestLogger_FiltersBelowMinimum(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "test", LevelWarning)

	l.Debugf("dropped")
	l.Noticef("also dropped")
	assert.Empty(t, buf.String())

	l.Warningf("kept %d", 1)
	assert.Contains(t, buf.String(), "[test]")
	assert.Contains(t, buf.String(), "[WARNING]")
	assert.Contains(t, buf.String(), "kept 1")
}

func TestLogger_PassesAllLevelsAboveMinimum(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "component", LevelDebug)

	l.Debugf("a")
	l.Noticef("b")
	l.Warningf("c")
	l.Errorf("d")

	out := buf.String()
	for _, want := range []string{"[DEBUG]", "[NOTICE]", "[WARNING]", "[ERROR]"} {
		assert.True(t, strings.Contains(out, want), "expected %q in log output: %s", want, out)
	}
}
