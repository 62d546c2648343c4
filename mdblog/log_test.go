package mdblog

import (
	"errors"
	"testing"
)

func TestNewLoggers(t *testing.T) {
	for _, format := range []string{"", "console", "json", "pretty"} {
		l, err := NewLoggers(LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
		if l.Get("generator") == nil || l.Get("") == nil {
			t.Fatalf("format %q: expected loggers", format)
		}
	}
	if _, err := NewLoggers(LogConfig{Format: "xml"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for format, got %v", err)
	}
	if _, err := NewLoggers(LogConfig{Level: "loud"}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for level, got %v", err)
	}
}

func TestNilLoggersAreNoOp(t *testing.T) {
	var l *Loggers
	log := l.Get("anything")
	if _, ok := log.(nopLogger); !ok {
		t.Fatalf("expected no-op logger, got %T", log)
	}
	log.Info("ignored", "k", "v")
}
