package framepipe

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type level string

const (
	levelDebug level = "DEBUG"
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
)

// DefaultLogger prints "[prefix] LEVEL: message". Debug and info go to one
// writer, warnings and errors to another. Safe for concurrent use.
type DefaultLogger struct {
	debug  atomic.Bool
	prefix string
	out    *log.Logger
	errOut *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewDefaultLoggerTo(os.Stdout, os.Stderr, prefix, debug)
}

func NewDefaultLoggerTo(out, errOut io.Writer, prefix string, debug bool) *DefaultLogger {
	const flags = log.LstdFlags | log.Lmicroseconds
	l := &DefaultLogger{
		prefix: prefix,
		out:    log.New(out, "", flags),
		errOut: log.New(errOut, "", flags),
	}
	l.debug.Store(debug)
	return l
}

func (l *DefaultLogger) DebugEnabled() bool        { return l.debug.Load() }
func (l *DefaultLogger) SetDebug(enabled bool)     { l.debug.Store(enabled) }
func (l *DefaultLogger) Infof(f string, a ...any)  { l.logf(levelInfo, f, a...) }
func (l *DefaultLogger) Warnf(f string, a ...any)  { l.logf(levelWarn, f, a...) }
func (l *DefaultLogger) Errorf(f string, a ...any) { l.logf(levelError, f, a...) }

func (l *DefaultLogger) Debugf(f string, a ...any) {
	if l.debug.Load() {
		l.logf(levelDebug, f, a...)
	}
}

func (l *DefaultLogger) logf(lv level, format string, args ...any) {
	dst := l.out
	if lv == levelWarn || lv == levelError {
		dst = l.errOut
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		dst.Printf("%s: %s", lv, msg)
		return
	}
	dst.Printf("[%s] %s: %s", l.prefix, lv, msg)
}

// LoggingModule installs a DefaultLogger resource, or Logger as-is when set.
type LoggingModule struct {
	Prefix string
	Debug  bool
	Logger *DefaultLogger
}

func (m LoggingModule) Install(app *App, cmd *Commands) {
	logger := m.Logger
	if logger == nil {
		logger = NewDefaultLogger(m.Prefix, m.Debug)
	}
	cmd.AddResources(logger)
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Logger returns the installed DefaultLogger, or a no-op logger. Never nil.
func (app *App) Logger() Logger {
	if app == nil || app.resources == nil {
		return nopLogger{}
	}
	if l, ok := Resource[DefaultLogger](app); ok {
		return l
	}
	return nopLogger{}
}
