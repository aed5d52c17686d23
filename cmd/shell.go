// Package cmd provides the shared plumbing underneath the revproc binaries:
// config file loading with validation, logger and metrics setup, and the
// fail-fast helpers commands use at startup.
package cmd

import (
	"fmt"
	"log/syslog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	blog "github.com/cms-pki/revproc/log"
)

// StatsAndLogging sets up a prometheus registry with the standard process
// collectors and a logger per the syslog config, and installs the logger as
// the process-wide default. It must be called before the logger is used.
func StatsAndLogging(cfg SyslogConfig) (prometheus.Registerer, blog.Logger) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	logger := NewLogger(cfg)
	return registry, logger
}

// NewLogger builds a logger from the syslog config and installs it as the
// process-wide default.
func NewLogger(cfg SyslogConfig) blog.Logger {
	var logger blog.Logger
	if cfg.SyslogLevel >= 0 {
		syslogger, err := syslog.Dial("", "", syslog.LOG_INFO|syslog.LOG_LOCAL0, "revproc")
		FailOnError(err, "Could not connect to Syslog")
		logger, err = blog.New(syslogger, cfg.StdoutLevel, cfg.SyslogLevel)
		FailOnError(err, "Could not connect to Syslog")
	} else {
		logger = blog.StdoutLogger(cfg.StdoutLevel)
	}

	_ = blog.Set(logger)
	return logger
}

// Fail raises an error printing it to stderr and exiting nonzero. It skips
// the logger because it is used for failures during logger setup.
func Fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

// FailOnError calls Fail if the error is non-nil, prefixing it with msg.
func FailOnError(err error, msg string) {
	if err != nil {
		Fail(fmt.Sprintf("%s: %s", msg, err))
	}
}

// AuditPanic catches and audit-logs panics, then re-raises them. Deferred in
// every binary's main.
func AuditPanic() {
	err := recover()
	if err == nil {
		return
	}
	logger := blog.Get()
	logger.AuditErrf("Panic caused by err: %s", err)
	panic(err)
}
