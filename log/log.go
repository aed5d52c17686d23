// Package log provides the leveled, audit-aware logger used throughout the
// revocation core. Messages that belong to the security audit trail are
// marked with an [AUDIT] tag so the upstream system logger can route them to
// tamper-evident storage; everything else passes through as ordinary leveled
// output.
package log

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/syslog"
	"os"
	"path"
	"runtime"
	"sync"

	"github.com/jmhodges/clock"
)

// A Logger logs messages with explicit priority levels. It is implemented by
// a logging back-end as provided by New(), StdoutLogger() or NewMock().
type Logger interface {
	Err(msg string)
	Errf(format string, a ...any)
	Warning(msg string)
	Warningf(format string, a ...any)
	Info(msg string)
	Infof(format string, a ...any)
	Debug(msg string)
	Debugf(format string, a ...any)
	AuditInfo(msg string)
	AuditInfof(format string, a ...any)
	AuditObject(msg string, obj any)
	AuditErr(msg string)
	AuditErrf(format string, a ...any)
	AuditPanic()
}

// The constant used to identify audit-specific messages.
const auditTag = "[AUDIT]"

// impl implements Logger.
type impl struct {
	w writer
}

type writer interface {
	logAtLevel(syslog.Priority, string)
}

var (
	singletonOnce sync.Once
	singleton     Logger
)

// Set configures the package-level Logger used by AuditPanic helpers. It must
// be called at most once, before the first call to Get.
func Set(logger Logger) error {
	if singleton != nil {
		return errors.New("logger already set")
	}
	singleton = logger
	return nil
}

// Get returns the package-level Logger, installing a stdout-only logger with
// default levels if Set was never called.
func Get() Logger {
	singletonOnce.Do(func() {
		if singleton == nil {
			singleton = StdoutLogger(int(syslog.LOG_DEBUG))
		}
	})
	return singleton
}

// New returns a Logger backed by both the given syslog writer and stdout.
// Messages at a priority above the respective level are dropped for that
// backend.
func New(log *syslog.Writer, stdoutLevel int, syslogLevel int) (Logger, error) {
	if log == nil {
		return nil, errors.New("attempted to use a nil system logger")
	}
	return &impl{
		w: &bothWriter{
			Writer:      log,
			stdoutLevel: stdoutLevel,
			syslogLevel: syslogLevel,
			clk:         clock.New(),
		},
	}, nil
}

// StdoutLogger returns a Logger that writes to stdout only, for tools and
// tests that have no syslog available.
func StdoutLogger(level int) Logger {
	return &impl{w: &stdoutWriter{level: level, clk: clock.New()}}
}

// bothWriter writes to both syslog and stdout.
type bothWriter struct {
	*syslog.Writer
	stdoutLevel int
	syslogLevel int
	clk         clock.Clock
}

func (w *bothWriter) logAtLevel(level syslog.Priority, msg string) {
	var err error

	if int(level) <= w.syslogLevel {
		switch level {
		case syslog.LOG_ERR:
			err = w.Err(msg)
		case syslog.LOG_WARNING:
			err = w.Warning(msg)
		case syslog.LOG_INFO:
			err = w.Info(msg)
		case syslog.LOG_DEBUG:
			err = w.Debug(msg)
		default:
			err = w.Err(fmt.Sprintf("%s (unknown logging level: %d)", msg, int(level)))
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to write to syslog: %s (%s)\n", msg, err)
	}

	stdoutLogLine(w.clk, w.stdoutLevel, level, msg)
}

// stdoutWriter writes to stdout only.
type stdoutWriter struct {
	level int
	clk   clock.Clock
}

func (w *stdoutWriter) logAtLevel(level syslog.Priority, msg string) {
	stdoutLogLine(w.clk, w.level, level, msg)
}

func stdoutLogLine(clk clock.Clock, maxLevel int, level syslog.Priority, msg string) {
	if int(level) > maxLevel {
		return
	}

	var prefix string
	switch level {
	case syslog.LOG_ERR:
		prefix = "E"
	case syslog.LOG_WARNING:
		prefix = "W"
	case syslog.LOG_INFO:
		prefix = "I"
	case syslog.LOG_DEBUG:
		prefix = "D"
	default:
		prefix = "?"
	}

	fmt.Printf("%s%s %s %s\n",
		prefix,
		clk.Now().Format("150405"),
		path.Base(os.Args[0]),
		msg)
}

func (log *impl) auditAtLevel(level syslog.Priority, msg string) {
	log.w.logAtLevel(level, fmt.Sprintf("%s %s", auditTag, msg))
}

// Err level messages are always marked with the audit tag, for special
// handling at the upstream system logger.
func (log *impl) Err(msg string) {
	log.auditAtLevel(syslog.LOG_ERR, msg)
}

func (log *impl) Errf(format string, a ...any) {
	log.Err(fmt.Sprintf(format, a...))
}

func (log *impl) Warning(msg string) {
	log.w.logAtLevel(syslog.LOG_WARNING, msg)
}

func (log *impl) Warningf(format string, a ...any) {
	log.Warning(fmt.Sprintf(format, a...))
}

func (log *impl) Info(msg string) {
	log.w.logAtLevel(syslog.LOG_INFO, msg)
}

func (log *impl) Infof(format string, a ...any) {
	log.Info(fmt.Sprintf(format, a...))
}

func (log *impl) Debug(msg string) {
	log.w.logAtLevel(syslog.LOG_DEBUG, msg)
}

func (log *impl) Debugf(format string, a ...any) {
	log.Debug(fmt.Sprintf(format, a...))
}

// AuditInfo sends an INFO-severity message that is prefixed with the audit
// tag.
func (log *impl) AuditInfo(msg string) {
	log.auditAtLevel(syslog.LOG_INFO, msg)
}

func (log *impl) AuditInfof(format string, a ...any) {
	log.AuditInfo(fmt.Sprintf(format, a...))
}

// AuditObject sends an INFO-severity JSON-serialized object message that is
// prefixed with the audit tag.
func (log *impl) AuditObject(msg string, obj any) {
	jsonObj, err := json.Marshal(obj)
	if err != nil {
		log.auditAtLevel(syslog.LOG_ERR, fmt.Sprintf("object could not be serialized to JSON. Raw: %+v", obj))
		return
	}
	log.auditAtLevel(syslog.LOG_INFO, fmt.Sprintf("%s JSON=%s", msg, jsonObj))
}

// AuditErr logs an audit-tagged message at ERR level.
func (log *impl) AuditErr(msg string) {
	log.auditAtLevel(syslog.LOG_ERR, msg)
}

func (log *impl) AuditErrf(format string, a ...any) {
	log.AuditErr(fmt.Sprintf(format, a...))
}

// AuditPanic catches a panicking goroutine and logs it to the audit trail
// before letting the process die. Add it in a defer as early as possible.
func (log *impl) AuditPanic() {
	err := recover()
	if err == nil {
		return
	}
	log.AuditErrf("panic caused by err: %s", err)

	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	log.AuditErrf("stack trace (current frame): %s", buf[:n])
}
