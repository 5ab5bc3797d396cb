package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "automator"

// logFilePermissions applies when output is a file path.
const logFilePermissions = 0640

// Logger wraps slog.Logger with runtime defaults.
//
// Its Debug/Info/Warn/Error methods satisfy the small Logger interfaces
// declared by the automation and infrastructure packages.
type Logger struct {
	*slog.Logger
}

// New creates a Logger from the logging section of the config.
//
// If output names a file that cannot be opened, New falls back to stderr
// rather than failing startup.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, resolveOutput(cfg.Output))
}

// NewWithWriter creates a Logger that writes to w. Tests use it to capture output.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

func resolveOutput(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFilePermissions)
	if err != nil {
		return os.Stderr
	}
	return f
}

// parseLevel converts a string log level to slog.Level.
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a new Logger with additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component is shorthand for With("component", name).
//
//	triggerLog := logger.Component("trigger.schedule")
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default creates a logger for use before configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
