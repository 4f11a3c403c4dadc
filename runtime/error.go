package runtime

import "fmt"

// ErrorLevel is one of the four reporter levels spec §4.N names.
type ErrorLevel int

const (
	LevelNotice ErrorLevel = iota
	LevelWarning
	LevelDeprecated
	LevelError
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelNotice:
		return "Notice"
	case LevelWarning:
		return "Warning"
	case LevelDeprecated:
		return "Deprecated"
	case LevelError:
		return "Error"
	default:
		return "Unknown"
	}
}

// levelFromName maps trigger_error-style PHP error-level constants onto
// the reporter's four levels. No stdlib extension registers
// trigger_error/user_error, so nothing in this module calls it.
func levelFromName(phpLevel int64) ErrorLevel {
	switch phpLevel {
	case 256, 16384: // E_USER_ERROR, E_RECOVERABLE_ERROR-ish
		return LevelError
	case 512, 1024: // E_USER_WARNING, E_USER_NOTICE cross depending on caller
		return LevelWarning
	case 8192: // E_USER_DEPRECATED
		return LevelDeprecated
	default:
		return LevelNotice
	}
}

// ErrorSink is where formatted error text is written — distinct from
// OutputSink because PHP error output and script output are
// conventionally separated (stderr vs. stdout for the CLI SAPI).
type ErrorSink interface {
	Write(s string)
}

// ErrorReporter is the strategy object spec §4.N describes: a pluggable
// formatter/sink pair so tests can substitute a capturing reporter
// without touching process stderr. Grounded on the teacher's
// globalErrorState (error_reporting level + last-error tracking),
// restructured from a package-level singleton into a per-request field
// so concurrent requests never share mutable error state.
type ErrorReporter struct {
	sink     ErrorSink
	silenced bool
	lastFile string
	lastLine int
	last     *ReportedError
}

// ReportedError is what error_get_last() surfaces.
type ReportedError struct {
	Level   ErrorLevel
	Message string
	File    string
	Line    int
}

func newErrorReporter(sink ErrorSink) *ErrorReporter {
	return &ErrorReporter{sink: sink}
}

// SetLocation records the file/line the dispatcher was last executing,
// used to stamp the next reported error the way PHP stamps the
// triggering call site.
func (r *ErrorReporter) SetLocation(file string, line int) {
	r.lastFile, r.lastLine = file, line
}

// Silence toggles the `@`-suppressed region (spec §4.J): while silenced,
// every level below Error is dropped instead of reported.
func (r *ErrorReporter) Silence(on bool) { r.silenced = on }

// Report formats and writes an error at the given level, unless a
// non-Error level is currently silenced. The formatted shape
// (`<Level>: <message> in <file>:<line>`) matches spec §4.N exactly.
func (r *ErrorReporter) Report(level ErrorLevel, message string) {
	r.last = &ReportedError{Level: level, Message: message, File: r.lastFile, Line: r.lastLine}
	if r.silenced && level != LevelError {
		return
	}
	r.sink.Write(fmt.Sprintf("%s: %s in %s:%d\n", level, message, r.lastFile, r.lastLine))
}

// LastError returns the most recently reported error, for
// error_get_last().
func (r *ErrorReporter) LastError() (*ReportedError, bool) {
	if r.last == nil {
		return nil, false
	}
	return r.last, true
}

// ClearLastError discards the tracked last error (error_clear_last()).
func (r *ErrorReporter) ClearLastError() { r.last = nil }
