// Package logging holds the structured service logger and the colored console
// used for user-facing progress lines.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide structured logger.
var Logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetDebug switches the process logger to debug level.
func SetDebug(debug bool) {
	if debug {
		Logger.SetLevel(logrus.DebugLevel)
	} else {
		Logger.SetLevel(logrus.InfoLevel)
	}
}

// ServiceLogger returns an entry tagged with the service name and version.
func ServiceLogger(service, version string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		"service": service,
		"version": version,
	})
}

// BadgerLogger routes badger's messages into l. Badger reports routine
// compaction progress at info level, which is demoted to debug here.
type BadgerLogger struct {
	*logrus.Entry
}

// NewBadgerLogger tags entries with component=badger.
func NewBadgerLogger(l *logrus.Entry) BadgerLogger {
	return BadgerLogger{Entry: l.WithField("component", "badger")}
}

// Infof logs at debug level.
func (b BadgerLogger) Infof(format string, args ...interface{}) {
	b.Entry.Debugf(format, args...)
}
