// Package log configures slog for the fintrack processes and carries the
// shared field names used in structured log lines.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Logger wraps slog.Logger with a component name.
type Logger struct {
	*slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Format    string // text, json or tint
	Component string
	Output    io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// ParseLevel maps debug, info, warn and error; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds the slog handler for config.Format.
func NewHandler(config Config) slog.Handler {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	switch strings.ToLower(config.Format) {
	case "json":
		return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: config.Level})
	case "tint":
		return tint.NewHandler(out, &tint.Options{
			Level:      config.Level,
			TimeFormat: time.Kitchen,
		})
	default:
		return slog.NewTextHandler(out, &slog.HandlerOptions{Level: config.Level})
	}
}

func New(config Config) *Logger {
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	return &Logger{
		Logger:    slog.New(NewHandler(config)).With(FieldComponent, component),
		component: component,
	}
}

// Setup builds a logger and installs it as the slog default.
func Setup(config Config) *Logger {
	l := New(config)
	slog.SetDefault(l.Logger)
	return l
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(FieldComponent, component), component: component}
}

func (l *Logger) Component() string {
	return l.component
}

// Failure logs err at error level under the standard error field.
func (l *Logger) Failure(ctx context.Context, msg string, err error, args ...any) {
	l.Logger.ErrorContext(ctx, msg, append([]any{FieldError, err}, args...)...)
}
