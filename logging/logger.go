// Package logging provides the structured logger shared by every codewatch
// component. It is a thin layer over pterm's logger so that components log
// key/value pairs without building pterm argument slices themselves.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Config configures a Logger.
type Config struct {
	// Level is one of trace, debug, info, warn, error or disabled. Empty means info.
	Level string
	// Format is colorful or json. Empty means colorful.
	Format string
	// Writer defaults to stderr.
	Writer io.Writer
	// ShowTime prints a timestamp on every line.
	ShowTime bool
}

// Logger writes leveled key/value log lines.
type Logger struct {
	pl *pterm.Logger
}

// New builds a Logger from cfg. Unknown levels fall back to info.
func New(cfg Config) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = pterm.LogLevelInfo
	}

	formatter := pterm.LogFormatterColorful
	if strings.EqualFold(cfg.Format, "json") {
		formatter = pterm.LogFormatterJSON
	}

	pl := pterm.DefaultLogger.
		WithLevel(level).
		WithWriter(writer).
		WithFormatter(formatter).
		WithTime(cfg.ShowTime)

	return &Logger{pl: pl}
}

// Default returns an info level logger writing to stderr.
func Default() *Logger {
	return New(Config{})
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(Config{Level: "disabled", Writer: io.Discard})
}

// ParseLevel maps a level name to a pterm log level.
func ParseLevel(level string) (pterm.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pterm.LogLevelTrace, nil
	case "debug":
		return pterm.LogLevelDebug, nil
	case "", "info":
		return pterm.LogLevelInfo, nil
	case "warn", "warning":
		return pterm.LogLevelWarn, nil
	case "error":
		return pterm.LogLevelError, nil
	case "disabled", "off", "none":
		return pterm.LogLevelDisabled, nil
	default:
		return pterm.LogLevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

func (l *Logger) Trace(msg string, kv ...any) {
	l.pl.Trace(msg, l.pl.Args(kv...))
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.pl.Debug(msg, l.pl.Args(kv...))
}

func (l *Logger) Info(msg string, kv ...any) {
	l.pl.Info(msg, l.pl.Args(kv...))
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.pl.Warn(msg, l.pl.Args(kv...))
}

func (l *Logger) Error(msg string, kv ...any) {
	l.pl.Error(msg, l.pl.Args(kv...))
}

// OrDefault returns l, or the default logger when l is nil.
func OrDefault(l *Logger) *Logger {
	if l == nil {
		return Default()
	}
	return l
}
