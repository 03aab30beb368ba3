// Package exportlogrus adapts logrus to the go-snapshot Logger interface.
package exportlogrus

import (
	"io"

	"github.com/goliatone/go-snapshot/export"
	"github.com/sirupsen/logrus"
)

// Logger forwards export logs to a logrus entry.
type Logger struct {
	entry *logrus.Entry
}

var _ export.Logger = (*Logger)(nil)

// New wraps a logrus logger. A nil logger uses logrus.StandardLogger.
func New(logger *logrus.Logger) *Logger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Logger{entry: logrus.NewEntry(logger)}
}

// NewWithOptions builds a logrus logger writing to out at level ("debug", "info", ...).
// JSON output is used when json is set.
func NewWithOptions(out io.Writer, level string, json bool) (*Logger, error) {
	logger := logrus.New()
	if out != nil {
		logger.SetOutput(out)
	}
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, export.NewError(export.KindValidation, "invalid log level", err)
		}
		logger.SetLevel(parsed)
	}
	if json {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return New(logger), nil
}

// WithField returns a logger that adds key to every entry.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a logger that adds fields to every entry.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
