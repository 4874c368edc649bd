// Package honeylog configures the single process-wide structured log sink
// that every component writes to. The message tokens emitted by callers
// (e.g. "UnitID %d ignored (Siemens behavior)") are part of the external
// contract: operators key detection rules off them, so components must not
// reword them.
package honeylog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the root logger. Plain text output to stdout, timestamped,
// INFO level — matches the level set unconditionally in ModbusBaby's
// internal/logger.Init.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return l
}

// Component returns a child entry tagged with the owning component, the
// unit every package-level log call in this repo starts from.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}
