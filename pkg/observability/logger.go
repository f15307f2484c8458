package observability

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with the service name attached to every record.
type Logger struct {
	*slog.Logger
}

// NewLogger builds a JSON logger for the given service. Level comes from
// LOG_LEVEL (debug, info, warn, error); default info.
func NewLogger(serviceName string) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})
	return &Logger{slog.New(handler).With("service", serviceName)}
}

// NewTestLogger writes human-readable records to stderr at debug level;
// handy in tests that want to see what a component logged.
func NewTestLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return &Logger{slog.New(handler)}
}

// With returns a child logger with the extra attributes attached.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
