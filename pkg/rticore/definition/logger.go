// Package definition provides the structured logger every rticore
// component is constructed with.
package definition

import (
	"os"

	"github.com/onox/openrti-timecore/pkg/rticore/rtiids"
	"github.com/sirupsen/logrus"
)

// Logger is the logging port every rticore component accepts at
// construction, so that host applications can redirect, sample, or
// silence it without this module depending on a concrete backend.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})

	// ToggleDebug flips whether Debug/Debugf calls are emitted, returning
	// the new value.
	ToggleDebug(value bool) bool

	// WithFederate returns a Logger that tags every entry with federate,
	// used so peer protocol violations and mode transitions can be
	// filtered per federate in a federation-wide log stream.
	WithFederate(federate rtiids.FederateHandle) Logger
}

// LogrusLogger is the default Logger, backed by a structured logrus
// entry instead of the standard library's line-oriented *log.Logger.
type LogrusLogger struct {
	entry *logrus.Entry
	debug bool
}

// NewLogrusLogger constructs a Logger writing JSON-free, human-readable
// structured lines to stderr at info level by default.
func NewLogrusLogger() *LogrusLogger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.InfoLevel)
	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

// WithFederate returns a copy of l whose every entry carries the
// federate field.
func (l *LogrusLogger) WithFederate(federate rtiids.FederateHandle) Logger {
	return &LogrusLogger{entry: l.entry.WithField("federate", string(federate)), debug: l.debug}
}

// WithFields returns a copy of l whose every entry carries the given
// structured fields, e.g. {"commitID": id, "mode": mode.String()}.
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(fields), debug: l.debug}
}

func (l *LogrusLogger) Info(v ...interface{})                 { l.entry.Info(v...) }
func (l *LogrusLogger) Infof(format string, v ...interface{}) { l.entry.Infof(format, v...) }
func (l *LogrusLogger) Warn(v ...interface{})                 { l.entry.Warn(v...) }
func (l *LogrusLogger) Warnf(format string, v ...interface{}) { l.entry.Warnf(format, v...) }
func (l *LogrusLogger) Error(v ...interface{})                { l.entry.Error(v...) }
func (l *LogrusLogger) Errorf(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}
func (l *LogrusLogger) Fatal(v ...interface{})                 { l.entry.Fatal(v...) }
func (l *LogrusLogger) Fatalf(format string, v ...interface{}) { l.entry.Fatalf(format, v...) }

func (l *LogrusLogger) Debug(v ...interface{}) {
	if l.debug {
		l.entry.Debug(v...)
	}
}

func (l *LogrusLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		l.entry.Debugf(format, v...)
	}
}

// ToggleDebug flips whether Debug/Debugf calls are emitted and adjusts
// the underlying logrus level to match.
func (l *LogrusLogger) ToggleDebug(value bool) bool {
	l.debug = value
	if logger, ok := l.entry.Logger, true; ok {
		if value {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}
	}
	return l.debug
}

// NopLogger discards everything, for tests that don't want log noise.
type NopLogger struct{}

func (NopLogger) Info(v ...interface{})                  {}
func (NopLogger) Infof(format string, v ...interface{})  {}
func (NopLogger) Warn(v ...interface{})                  {}
func (NopLogger) Warnf(format string, v ...interface{})  {}
func (NopLogger) Error(v ...interface{})                 {}
func (NopLogger) Errorf(format string, v ...interface{}) {}
func (NopLogger) Debug(v ...interface{})                 {}
func (NopLogger) Debugf(format string, v ...interface{}) {}
func (NopLogger) Fatal(v ...interface{})                 {}
func (NopLogger) Fatalf(format string, v ...interface{}) {}
func (NopLogger) ToggleDebug(value bool) bool               { return false }
func (NopLogger) WithFederate(rtiids.FederateHandle) Logger { return NopLogger{} }
