// Package applog provides the logrus setup shared by every component of the
// ledger core, following the logging idiom of the teacher repo's
// core/wallet.go (a package-level default logger that callers may override).
package applog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger configured for the given level and output
// format. format is either "text" (human-readable, for local dev) or
// "json" (for shipping to log aggregation).
func New(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Component returns an Entry tagged with the originating subsystem, so log
// lines from consensus, the ledger pipeline, and SHAMap sync are easy to
// tell apart in aggregate.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}
