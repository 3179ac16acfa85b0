// Package logger implements a log/slog based logger for docker-image-cp.
//
// Log records are diagnostics about the run (resolved paths, skipped unwrap,
// cleanup failures). The "+ docker ..." echo lines are written by the docker
// package directly and never go through the logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/golang-cz/devslog"
	"github.com/phsym/console-slog"
)

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	l, _ := New(ConfigDefault()) //nolint:errcheck
	SetDefault(l)
}

// Level declares each supported log level. These are 1:1 what log/slog supports by default. Info is the default level.
type Level int

// Store names for Levels
var (
	Debug = Level(slog.LevelDebug) // -4
	Info  = Level(slog.LevelInfo)  // 0
	Warn  = Level(slog.LevelWarn)  // 4
	Error = Level(slog.LevelError) // 8
)

// String returns the string representation of the Level.
func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

var strLevels = map[string]Level{
	"debug": Debug,
	"info":  Info,
	"warn":  Warn,
	"error": Error,
}

// ParseLevel converts a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	l, ok := strLevels[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("invalid log level: %q (valid: debug, info, warn, error)", s)
	}
	return l, nil
}

// Format declares the kind of logging handler to use.
type Format string

var (
	// FormatConsole uses console-slog for short colorful lines
	FormatConsole Format = "console"
	// FormatJSON uses the standard slog JSONHandler
	FormatJSON Format = "json"
	// FormatDev uses a verbose and pretty printing devslog handler
	FormatDev Format = "dev"
	// FormatNone discards all log records
	FormatNone Format = "none"
)

// ParseFormat converts a case-insensitive format name into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	switch f {
	case FormatConsole, FormatJSON, FormatDev, FormatNone:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format: %q (valid: console, json, dev, none)", s)
	}
}

// Config is configuration for a logger.
type Config struct {
	Level       Level
	Format      Format
	Destination io.Writer
	Color       bool
}

// ConfigDefault returns console formatting at Info level writing to Stderr.
func ConfigDefault() Config {
	return Config{
		Level:       Info,
		Format:      FormatConsole,
		Destination: os.Stderr,
		Color:       true,
	}
}

// New takes a Config and returns a validated logger.
func New(cfg Config) (*slog.Logger, error) {
	if cfg.Destination == nil {
		cfg.Destination = os.Stderr
	}

	if _, ok := strLevels[cfg.Level.String()]; !ok {
		return nil, fmt.Errorf("unsupported log level: %d", cfg.Level)
	}

	opts := slog.HandlerOptions{
		Level: slog.Level(cfg.Level),
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatConsole, "":
		handler = console.NewHandler(cfg.Destination, &console.HandlerOptions{
			Level:   slog.Level(cfg.Level),
			NoColor: !cfg.Color,
		})
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Destination, &opts)
	case FormatDev:
		opts.AddSource = true
		handler = devslog.NewHandler(cfg.Destination, &devslog.Options{
			HandlerOptions:  &opts,
			NewLineAfterLog: true,
			NoColor:         !cfg.Color,
		})
	case FormatNone:
		handler = slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	return slog.New(handler), nil
}

type ctxKey struct{}

// WithContext stores logger on ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From reads the logger stored on ctx, falling back to Default.
func From(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return Default()
	}
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return Default()
}

// Default retrieves the package default logger.
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// SetDefault atomically replaces the package default logger.
func SetDefault(l *slog.Logger) {
	defaultLogger.Store(l)
}
