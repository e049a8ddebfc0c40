// Package applog configures the process-wide logrus logger used for
// structured progress and diagnostic output. It intentionally stays out of
// the install pipeline's return values: components take a *logrus.Entry (a
// nil entry disables their logging) rather than depending on this package
// directly, so the pipeline packages stay independently testable.
package applog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Configure sets the minimum level, enabling debug output when verbose is true.
func Configure(verbose bool) {
	if verbose {
		base.SetLevel(logrus.DebugLevel)
		return
	}
	base.SetLevel(logrus.InfoLevel)
}

// For returns a logger entry scoped to a component name, e.g. applog.For("installer").
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}
