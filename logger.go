package hugemap

import (
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
)

// Logger wraps slog.Logger with hugemap-specific helpers.
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

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LogIntercept logs an accepted mapping request.
func (l *Logger) LogIntercept(fd int, length int, huge bool) {
	l.Info("mapping intercepted",
		"fd", fd,
		"size", humanize.IBytes(uint64(length)),
		"huge_pages", huge,
	)
}

// LogForward logs a forwarded mapping request with the rejection reason.
func (l *Logger) LogForward(fd int, length int, reason string) {
	l.Debug("mapping forwarded",
		"fd", fd,
		"length", length,
		"reason", reason,
	)
}

// LogRelease logs a release and which path satisfied it.
func (l *Logger) LogRelease(tracked bool, length int) {
	if tracked {
		l.Info("tracked region released",
			"size", humanize.IBytes(uint64(length)),
		)
	} else {
		l.Debug("release forwarded",
			"length", length,
		)
	}
}

// LogDrain logs the shutdown drain of remaining regions.
func (l *Logger) LogDrain(regions int, bytes int64) {
	if regions == 0 {
		return
	}
	l.Info("draining tracked regions",
		"regions", regions,
		"bytes", humanize.IBytes(uint64(bytes)),
	)
}
