package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by ConfigFromEnv
const (
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvLogOutput = "LOG_OUTPUT"
)

// Logger is the logging interface used across the reconciler.
// Every call takes a context so that fields attached with WithLogField and
// friends end up on the emitted record.
type Logger interface {
	Debug(ctx context.Context, msg string)
	Debugf(ctx context.Context, format string, args ...interface{})
	Info(ctx context.Context, msg string)
	Infof(ctx context.Context, format string, args ...interface{})
	Warn(ctx context.Context, msg string)
	Warnf(ctx context.Context, format string, args ...interface{})
	Error(ctx context.Context, msg string)
	Errorf(ctx context.Context, format string, args ...interface{})

	// With returns a logger that always emits the given key/value pair
	With(key string, value interface{}) Logger
	// WithFields returns a logger that always emits the given fields
	WithFields(fields LogFields) Logger
}

// Config holds logger configuration
type Config struct {
	// Level is one of debug, info, warn, error
	Level string
	// Format is text or json
	Format string
	// Output is stdout or stderr
	Output string
	// Component is attached to every record
	Component string
	// Version is attached to every record
	Version string
	// Writer overrides Output when set (tests)
	Writer io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		Output: "stdout",
	}
}

// ConfigFromEnv returns DefaultConfig overridden by LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv(EnvLogOutput); v != "" {
		cfg.Output = v
	}
	return cfg
}

type slogLogger struct {
	base   *slog.Logger
	fields LogFields
}

// NewLogger creates a slog backed Logger from the given configuration
func NewLogger(cfg Config) (Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Writer
	if out == nil {
		switch strings.ToLower(cfg.Output) {
		case "", "stdout":
			out = os.Stdout
		case "stderr":
			out = os.Stderr
		default:
			return nil, fmt.Errorf("invalid log output %q (supported: stdout, stderr)", cfg.Output)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q (supported: text, json)", cfg.Format)
	}

	base := slog.New(handler)
	if cfg.Component != "" {
		base = base.With(ComponentKey, cfg.Component)
	}
	if cfg.Version != "" {
		base = base.With(VersionKey, cfg.Version)
	}
	if hostname, err := os.Hostname(); err == nil {
		base = base.With(HostnameKey, hostname)
	}

	return &slogLogger{base: base}, nil
}

// NewTestLogger returns a logger that discards everything, for tests
func NewTestLogger() Logger {
	return &slogLogger{base: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))}
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (supported: debug, info, warn, error)", level)
	}
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.base.Enabled(ctx, level) {
		return
	}
	attrs := make([]any, 0, 2*(len(l.fields)+4))
	for k, v := range l.fields {
		attrs = append(attrs, k, v)
	}
	for k, v := range GetLogFields(ctx) {
		attrs = append(attrs, k, v)
	}
	l.base.Log(ctx, level, msg, attrs...)
}

func (l *slogLogger) Debug(ctx context.Context, msg string) { l.log(ctx, slog.LevelDebug, msg) }
func (l *slogLogger) Info(ctx context.Context, msg string)  { l.log(ctx, slog.LevelInfo, msg) }
func (l *slogLogger) Warn(ctx context.Context, msg string)  { l.log(ctx, slog.LevelWarn, msg) }
func (l *slogLogger) Error(ctx context.Context, msg string) { l.log(ctx, slog.LevelError, msg) }

func (l *slogLogger) Debugf(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelDebug, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Infof(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Warnf(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelWarn, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Errorf(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelError, fmt.Sprintf(format, args...))
}

func (l *slogLogger) With(key string, value interface{}) Logger {
	return l.WithFields(LogFields{key: value})
}

func (l *slogLogger) WithFields(fields LogFields) Logger {
	merged := make(LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &slogLogger{base: l.base, fields: merged}
}
