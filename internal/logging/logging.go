// Package logging provides structured logging with slog for imectx.
//
// Features:
//   - JSON and text output formats
//   - Log levels (debug, info, warn, error)
//   - Per-component loggers
//   - Redaction of typed text and other sensitive attributes
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents a logging level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the output format for logs.
type Format int

const (
	// FormatText outputs human-readable text logs.
	FormatText Format = iota
	// FormatJSON outputs JSON-structured logs.
	FormatJSON
)

// Config holds the logging configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level

	// Leveler overrides Level when set. Pass a *slog.LevelVar to change
	// the level of a running logger.
	Leveler slog.Leveler

	// Format is the output format (text or JSON).
	Format Format

	// Output specifies where logs are written: "stdout" or "stderr".
	// Ignored when Writer is set.
	Output string

	// Writer overrides Output.
	Writer io.Writer

	// AddSource adds source file and line to log entries.
	AddSource bool

	// LogText disables redaction of composition and candidate text.
	// Typed text is private; leave this off outside local debugging.
	LogText bool

	// Component is the name of the component using this logger.
	Component string
}

// DefaultConfig returns a default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:     LevelInfo,
		Format:    FormatText,
		Output:    "stderr",
		AddSource: false,
		Component: "imectx",
	}
}

// Logger wraps slog.Logger with the configuration it was built from.
type Logger struct {
	*slog.Logger
	config *Config
}

// global default logger
var (
	defaultLogger *Logger
	loggerOnce    sync.Once
	defaultMu     sync.RWMutex
)

// Default returns the default global logger.
func Default() *Logger {
	loggerOnce.Do(func() {
		l, err := New(DefaultConfig())
		if err != nil {
			l = &Logger{Logger: slog.Default(), config: DefaultConfig()}
		}
		defaultMu.Lock()
		if defaultLogger == nil {
			defaultLogger = l
		}
		defaultMu.Unlock()
	})

	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default global logger and installs it as the slog
// default.
func SetDefault(l *Logger) {
	loggerOnce.Do(func() {})
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	slog.SetDefault(l.Logger)
}

// New creates a new Logger with the given configuration.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	w, err := writerFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("setup writer: %w", err)
	}

	var level slog.Leveler = cfg.Level
	if cfg.Leveler != nil {
		level = cfg.Leveler
	}

	logText := cfg.LogText
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if shouldRedact(a.Key, logText) {
				a.Value = slog.StringValue("[REDACTED]")
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	if cfg.Component != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("component", cfg.Component),
		})
	}

	return &Logger{Logger: slog.New(handler), config: cfg}, nil
}

// writerFor resolves the configured output.
func writerFor(cfg *Config) (io.Writer, error) {
	if cfg.Writer != nil {
		return cfg.Writer, nil
	}
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	default:
		return nil, fmt.Errorf("unknown log output: %s", cfg.Output)
	}
}

// shouldRedact checks if an attribute key carries sensitive data.
func shouldRedact(key string, logText bool) bool {
	keyLower := strings.ToLower(key)

	if !logText {
		for _, typed := range []string{"text", "candidate", "composition", "clause"} {
			if strings.Contains(keyLower, typed) {
				return true
			}
		}
	}

	for _, sensitive := range []string{"password", "secret", "token", "credential"} {
		if strings.Contains(keyLower, sensitive) {
			return true
		}
	}
	return false
}

// WithComponent returns a new logger with a different component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("component", name)),
		config: l.config,
	}
}

// Config returns the configuration the logger was built from.
func (l *Logger) Config() *Config {
	return l.config
}

// Convenience functions for the default logger.

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

// Info logs at info level using the default logger.
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Error logs at error level using the default logger.
func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}

// ParseLevel parses a string into a log level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// LevelString returns the string representation of a log level.
func LevelString(level Level) string {
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseFormat parses "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format: %s", s)
	}
}
