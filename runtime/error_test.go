package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorReporter_ReportFormatsLevelMessageLocation(t *testing.T) {
	sink := &captureSink{}
	r := newErrorReporter(sink)
	r.SetLocation("/var/www/index.php", 12)

	r.Report(LevelWarning, "undefined variable")
	assert.Equal(t, "Warning: undefined variable in /var/www/index.php:12\n", sink.got)
}

func TestErrorReporter_SilenceDropsNonErrorLevels(t *testing.T) {
	sink := &captureSink{}
	r := newErrorReporter(sink)
	r.Silence(true)

	r.Report(LevelNotice, "suppressed")
	assert.Empty(t, sink.got)

	r.Report(LevelError, "not suppressed")
	assert.Contains(t, sink.got, "not suppressed")
}

func TestErrorReporter_LastErrorTracksMostRecentReport(t *testing.T) {
	r := newErrorReporter(&captureSink{})
	_, ok := r.LastError()
	assert.False(t, ok)

	r.SetLocation("a.php", 1)
	r.Report(LevelNotice, "first")
	r.SetLocation("b.php", 2)
	r.Report(LevelError, "second")

	last, ok := r.LastError()
	require.True(t, ok)
	assert.Equal(t, "second", last.Message)
	assert.Equal(t, "b.php", last.File)
	assert.Equal(t, 2, last.Line)
}

func TestErrorReporter_LastErrorTrackedEvenWhenSilenced(t *testing.T) {
	r := newErrorReporter(&captureSink{})
	r.Silence(true)
	r.Report(LevelNotice, "quiet")

	last, ok := r.LastError()
	require.True(t, ok)
	assert.Equal(t, "quiet", last.Message)
}

func TestErrorReporter_ClearLastError(t *testing.T) {
	r := newErrorReporter(&captureSink{})
	r.Report(LevelNotice, "x")
	r.ClearLastError()

	_, ok := r.LastError()
	assert.False(t, ok)
}

func TestErrorLevel_String(t *testing.T) {
	assert.Equal(t, "Notice", LevelNotice.String())
	assert.Equal(t, "Warning", LevelWarning.String())
	assert.Equal(t, "Deprecated", LevelDeprecated.String())
	assert.Equal(t, "Error", LevelError.String())
	assert.Equal(t, "Unknown", ErrorLevel(99).String())
}
