// Package log is the allocator's logging facade. It re-exports
// github.com/prataprc/golog rather than keeping an independent
// level-logger implementation, so every tier's diagnostics (central
// cache lookup misses, page heap exhaustion, thread cache overflow)
// land on the same configurable sink an embedding application
// already uses for its own logging.
package log

import golog "github.com/prataprc/golog"

func init() {
	golog.SetLogger(nil, map[string]interface{}{
		"log.level": "info",
		"log.file":  "",
	})
}

// Logger is the interface golog expects an application-supplied
// logger to satisfy.
type Logger = golog.Logger

// SetLogger installs logger, or a golog default logger configured
// from setts when logger is nil. Importing this package already
// installs an info-level default logger (see init); SetLogger replaces
// it the same way golog's other consumers wire one up during startup.
func SetLogger(logger Logger, setts map[string]interface{}) Logger {
	return golog.SetLogger(logger, setts)
}

func Fatalf(format string, v ...interface{})   { golog.Fatalf(format, v...) }
func Errorf(format string, v ...interface{})   { golog.Errorf(format, v...) }
func Warnf(format string, v ...interface{})    { golog.Warnf(format, v...) }
func Infof(format string, v ...interface{})    { golog.Infof(format, v...) }
func Verbosef(format string, v ...interface{}) { golog.Verbosef(format, v...) }
func Debugf(format string, v ...interface{})   { golog.Debugf(format, v...) }
func Tracef(format string, v ...interface{})   { golog.Tracef(format, v...) }
