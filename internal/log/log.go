// Package log provides structured logging for go-ainex.
// It wraps slog with console output and an optional session log file.
package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	logger *slog.Logger
	once   sync.Once
	file   *os.File
)

// Options controls logger initialization.
type Options struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string

	// Dir enables a per-run log file (robot_logs_<timestamp>.log) in Dir.
	// Empty disables file logging.
	Dir string
}

// ParseLevel converts a level name to a slog level (info by default).
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	_ = InitWithOptions(Options{Level: level})
}

// InitWithOptions initializes the global logger. Only the first call has an
// effect. A failure to open the log file falls back to console-only logging
// and is returned to the caller.
func InitWithOptions(opts Options) error {
	var initErr error
	once.Do(func() {
		hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

		var out io.Writer = os.Stdout
		var fileHandler slog.Handler
		if opts.Dir != "" {
			f, err := openLogFile(opts.Dir, time.Now())
			if err != nil {
				initErr = err
			} else {
				file = f
				fileHandler = slog.NewTextHandler(f, hopts)
			}
		}

		// Use JSON in production, text in development
		var console slog.Handler
		if os.Getenv("GO_ENV") == "production" {
			console = slog.NewJSONHandler(out, hopts)
		} else {
			console = slog.NewTextHandler(out, hopts)
		}

		if fileHandler != nil {
			logger = slog.New(fanout{console, fileHandler})
		} else {
			logger = slog.New(console)
		}
		slog.SetDefault(logger)
	})
	return initErr
}

func openLogFile(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := fmt.Sprintf("robot_logs_%s.log", now.Format("20060102_150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fanout sends each record to every handler.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
