package mdblog

import (
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// Logger is the leveled, key/value logging contract used by every component.
// Child loggers of a go-logger root satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LogConfig selects the level and output format of the root logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Loggers hands out named child loggers off a single go-logger root.
type Loggers struct {
	root *glog.BaseLogger
}

// NewLoggers builds the root logger from cfg.
func NewLoggers(cfg LogConfig) (*Loggers, error) {
	var options []glog.Option
	if level, err := logLevel(cfg.Level); err != nil {
		return nil, err
	} else if level != "" {
		options = append(options, glog.WithLevel(level))
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "console":
		options = append(options, glog.WithLoggerTypeConsole())
	case "json":
		options = append(options, glog.WithLoggerTypeJSON())
	case "pretty":
		options = append(options, glog.WithLoggerTypePretty())
	default:
		return nil, fmt.Errorf("%w: unsupported log format %q", ErrInvalidConfig, cfg.Format)
	}
	return &Loggers{root: glog.NewLogger(options...)}, nil
}

// Get returns the logger for a component. A nil receiver yields a no-op logger.
func (l *Loggers) Get(name string) Logger {
	if l == nil || l.root == nil {
		return nopLogger{}
	}
	if name == "" {
		return l.root
	}
	return l.root.GetLogger(name)
}

func logLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return "", nil
	case "trace":
		return glog.Trace, nil
	case "debug":
		return glog.Debug, nil
	case "info":
		return glog.Info, nil
	case "warn", "warning":
		return glog.Warn, nil
	case "error":
		return glog.Error, nil
	}
	return "", fmt.Errorf("%w: unsupported log level %q", ErrInvalidConfig, level)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything.
func NopLogger() Logger { return nopLogger{} }
