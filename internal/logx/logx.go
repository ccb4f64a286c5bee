// Package logx wraps structured logging the way the teacher's daemon
// wraps slog: a thin struct around *slog.Logger so call sites log
// structured fields without depending on slog directly, paired with
// lumberjack for on-disk rotation.
package logx

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide structured logger.
type Logger struct {
	logger *slog.Logger
}

// Options configures where and how logs are written.
type Options struct {
	// FilePath, when non-empty, routes logs through a rotating file
	// writer instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Level      slog.Level
}

// New builds a Logger per opts. An empty FilePath logs to stderr as
// human-readable text; a non-empty one logs JSON to a rotated file,
// matching the teacher's split between interactive and daemon logging.
func New(opts Options) *Logger {
	var w io.Writer = os.Stderr
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	if opts.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    nonZero(opts.MaxSizeMB, 20),
			MaxBackups: nonZero(opts.MaxBackups, 5),
			MaxAge:     nonZero(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		return &Logger{logger: slog.New(slog.NewJSONHandler(w, handlerOpts))}
	}
	return &Logger{logger: slog.New(slog.NewTextHandler(w, handlerOpts))}
}

// Discard returns a Logger that drops everything, for tests.
func Discard() *Logger {
	return &Logger{logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

func nonZero(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// With returns a Logger that always includes the given key/value pairs,
// for tagging a subsystem's log lines (e.g. component="watcher").
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}
