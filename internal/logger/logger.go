// Package logger provides the structured logger used across the job pipeline.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger so call sites depend on one type across the module.
type Logger struct {
	*logrus.Logger
}

// Config controls level and output format.
type Config struct {
	Level  string
	Format string
}

// New builds a Logger from Config, defaulting to info level / text format on
// parse failure so a bad LOG_LEVEL never keeps the process from starting.
func New(cfg Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.SetOutput(os.Stdout)

	return &Logger{Logger: l}
}

// NewDefault returns an info-level, text-formatted logger. name is not
// attached to the returned logger or to the entries it produces.
func NewDefault(name string) *Logger {
	l := New(Config{Level: "info", Format: "text"})
	return &Logger{Logger: l.Logger.WithField("component", name).Logger}
}

// WithField returns a new log entry with a field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithFields returns a new log entry with multiple fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithError returns a new log entry carrying err under the standard key.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}
