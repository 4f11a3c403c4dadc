// Package logging is the small structured-diagnostic-log shim FPM
// master/pool/worker lifecycle events go through; extension load/unload
// and request start/stop are not logged. It wraps the standard `log`
// package the way
// the teacher's pkg/fpm does rather than pulling in a dedicated
// structured-logging library no pack example reaches for. Script-visible
// output never comes through here — that is the Output Subsystem's job.
package logging

import (
	"io"
	"log"
)

// Level is the severity a log line is tagged with.
type Level int

const (
	LevelDebug Level = iota
	LevelNotice
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelNotice:
		return "NOTICE"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger wraps a standard *log.Logger with a minimum level filter and
// the [component] prefix convention the FPM master/worker/pool code
// uses to tell which subsystem a line came from.
type Logger struct {
	std *log.Logger
	min Level
}

// New builds a Logger writing to w (typically the configured
// error_log file, or os.Stderr) with prefix component, e.g. "master",
// "pool:www", "worker:42".
func New(w io.Writer, component string, min Level) *Logger {
	return &Logger{
		std: log.New(w, "["+component+"] ", log.LstdFlags),
		min: min,
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.min {
		return
	}
	l.std.Printf("["+level.String()+"] "+format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{})   { l.log(LevelDebug, format, args...) }
func (l *Logger) Noticef(format string, args ...interface{})  { l.log(LevelNotice, format, args...) }
func (l *Logger) Warningf(format string, args ...interface{}) { l.log(LevelWarning, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})   { l.log(LevelError, format, args...) }

// ParseLevel maps the config file's log_level string (php-fpm's own
// alert/error/warning/notice/debug vocabulary) onto a Level, defaulting
// to LevelNotice for anything unrecognized.
func ParseLevel(name string) Level {
	switch name {
	case "debug":
		return LevelDebug
	case "warning", "warn":
		return LevelWarning
	case "error", "alert", "emerg", "crit":
		return LevelError
	default:
		return LevelNotice
	}
}
