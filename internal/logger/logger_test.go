package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_DefaultsOnBadLevel(t *testing.T) {
	l := New(Config{Level: "not-a-level", Format: "json"})
	if l.Logger.Level.String() != "info" {
		t.Errorf("expected info level fallback, got %s", l.Logger.Level.String())
	}
}

func TestNew_TextFormatDefault(t *testing.T) {
	l := New(Config{Level: "debug", Format: "unknown"})
	if l.Logger.Level.String() != "debug" {
		t.Errorf("expected debug level, got %s", l.Logger.Level.String())
	}
	if _, ok := l.Logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("expected text formatter for unknown format, got %T", l.Logger.Formatter)
	}
}

func TestNewDefault_ReturnsLogger(t *testing.T) {
	l := NewDefault("e2e-report")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}
