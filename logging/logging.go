// Package logging provides the leveled, sanitizing logger the core
// hands its observable side effects to: a single five-level sink every
// package in this repo writes through.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/drake/tn5250/recovery"
)

// Level orders the five severities this package names.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Critical
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Logger wraps a standard log.Logger with a minimum level and a
// sanitization step: Warn and above always log the sanitized message
// only; Debug records additionally print an unsanitized context value,
// but only when the logger's level is itself Debug, so a production
// deployment never has to opt out of leaking detail — it simply never
// reaches the sink.
type Logger struct {
	mu        sync.Mutex
	out       *log.Logger
	level     Level
	sanitizer recovery.Sanitizer
}

// New creates a Logger writing to w (os.Stderr is the typical choice)
// at the given minimum level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		out:   log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		level: level,
	}
}

// Default returns a Logger writing to stderr at Info.
func Default() *Logger { return New(os.Stderr, Info) }

func (l *Logger) enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// Debugf logs at Debug, including ctx's %+v expansion, only when the
// logger's level is Debug (never partially — no secrets leak at Info+).
func (l *Logger) Debugf(ctx any, format string, args ...any) {
	if !l.enabled(Debug) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.out.Printf("[%s] %s context=%+v", Debug, msg, ctx)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logPlain(Info, format, args...)
}

// Warnf and Errorf sanitize kind/detail through recovery.Sanitizer
// before logging, so no raw hostnames/paths/ports from err reach the
// sink.
func (l *Logger) Warnf(kind recovery.Kind, detail string, err error) {
	l.logSanitized(Warn, kind, detail, err)
}

func (l *Logger) Errorf(kind recovery.Kind, detail string, err error) {
	l.logSanitized(Error, kind, detail, err)
}

func (l *Logger) Criticalf(kind recovery.Kind, detail string, err error) {
	l.logSanitized(Critical, kind, detail, err)
}

func (l *Logger) logPlain(level Level, format string, args ...any) {
	if !l.enabled(level) {
		return
	}
	l.out.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) logSanitized(level Level, kind recovery.Kind, detail string, err error) {
	if !l.enabled(level) {
		return
	}
	sanitized, _ := l.sanitizer.Sanitize(kind, detail, err)
	l.out.Printf("[%s] code=%s message=%q", level, sanitized.Code, sanitized.UserMessage)
}
