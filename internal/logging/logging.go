// Package logging builds the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options selects level and output format.
type Options struct {
	Level  string // logrus level name, defaults to info
	Format string // "json" or "text"; empty picks text when Dev is set and json otherwise
	Dev    bool
	Out    io.Writer
}

// New returns a configured logger tagged with the service name.
func New(o Options) *logrus.Logger {
	l := logrus.New()
	if o.Out != nil {
		l.SetOutput(o.Out)
	} else {
		l.SetOutput(os.Stdout)
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(o.Level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	format := strings.ToLower(o.Format)
	if format == "" {
		format = "json"
		if o.Dev {
			format = "text"
		}
	}
	if format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}

// Service returns an entry carrying the service name field.
func Service(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("service", name)
}
