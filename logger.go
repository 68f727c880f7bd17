package heapview

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with heapview-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithHeapID adds a heap id field to the logger.
func (l *Logger) WithHeapID(id uint8) *Logger {
	return &Logger{
		Logger: l.Logger.With("heap", id),
	}
}

// LogEvent logs a record operation.
func (l *Logger) LogEvent(op EventOp, addr uint64, tick uint32, err error) {
	if err != nil {
		l.Error("event rejected",
			"op", string(op),
			"addr", addr,
			"tick", tick,
			"error", err,
		)
	} else {
		l.Debug("event recorded",
			"op", string(op),
			"addr", addr,
			"tick", tick,
		)
	}
}

// LogRebuild logs a spatial-index rebuild.
func (l *Logger) LogRebuild(blocks int) {
	l.Debug("spatial index rebuilt",
		"blocks", blocks,
	)
}

// LogDump logs a geometry dump.
func (l *Logger) LogDump(vertices int) {
	l.Debug("vertices dumped",
		"vertices", vertices,
	)
}
