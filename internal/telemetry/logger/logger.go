package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Format is json or text.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource records the calling file and line.
	AddSource bool
}

// DefaultConfig returns JSON logging at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// level is shared by every logger built by New.
var level = new(slog.LevelVar)

// New builds a logger from cfg and sets the shared level.
func New(cfg Config) (Logger, error) {
	lv, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: replaceAttr,
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(out, opts)
	case "text":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	level.Set(lv)
	return FromSlog(slog.New(h)), nil
}

// FromSlog adapts l to Logger. Records from l are not redacted unless its
// handler does so.
func FromSlog(l *slog.Logger) Logger {
	return &slogLogger{l: l, ctx: context.Background()}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return FromSlog(slog.New(slog.DiscardHandler))
}

// ParseLevel converts a level name. The empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", name)
	}
}

// SetLevel changes the level of every logger built by New.
func SetLevel(name string) error {
	lv, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(lv)
	return nil
}

// CurrentLevel returns the shared level name in lower case.
func CurrentLevel() string {
	return strings.ToLower(level.Level().String())
}

type slogLogger struct {
	l   *slog.Logger
	ctx context.Context
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Log(s.ctx, slog.LevelDebug, msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Log(s.ctx, slog.LevelInfo, msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Log(s.ctx, slog.LevelWarn, msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Log(s.ctx, slog.LevelError, msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...), ctx: s.ctx}
}

func (s *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{l: s.l, ctx: ctx}
}

type holder struct{ Logger }

var defaultLogger atomic.Value

func init() {
	l, _ := New(DefaultConfig())
	defaultLogger.Store(holder{l})
}

// SetDefault replaces the process-wide logger. nil is ignored.
func SetDefault(l Logger) {
	if l != nil {
		defaultLogger.Store(holder{l})
	}
}

// Default returns the process-wide logger.
func Default() Logger {
	return defaultLogger.Load().(holder).Logger
}

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Info logs at info level using the default logger.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Error logs at error level using the default logger.
func Error(msg string, args ...any) { Default().Error(msg, args...) }
