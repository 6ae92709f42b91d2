package voyager

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger for structured index logging.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler gets a
// text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards everything.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}
