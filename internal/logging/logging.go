// Package logging provides the process-wide structured logger.
//
// All components log through the shared logrus.Logger returned by L()
// rather than the standard library's log package, so that session id,
// language, and PID fields are consistently attached and so that a coding
// agent tailing stderr can correlate log lines with the sessionId values
// returned by the tool API.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// L returns the shared logger.
func L() *logrus.Logger {
	return logger
}

// SetLevel adjusts the shared logger's verbosity, e.g. from a -verbose flag.
func SetLevel(level logrus.Level) {
	logger.SetLevel(level)
}

// Session returns a logger with a sessionId field pre-attached.
func Session(id string) *logrus.Entry {
	return logger.WithField("sessionId", id)
}
