package shardstream

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with shardstream-specific context.
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
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithWorker adds a worker field to the logger.
func (l *Logger) WithWorker(worker int) *Logger {
	return &Logger{
		Logger: l.Logger.With("worker", worker),
	}
}

// LogShardDownload logs a completed (or failed) shard download.
func (l *Logger) LogShardDownload(ctx context.Context, shardID int, bytes int64, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "shard download failed",
			"shard", shardID,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "shard download completed",
			"shard", shardID,
			"bytes", bytes,
			"duration", duration,
		)
	}
}

// LogPrefetchFailure logs a prefetch error that was deferred to the
// consumer's synchronous retry path.
func (l *Logger) LogPrefetchFailure(ctx context.Context, sampleID int64, err error) {
	l.WarnContext(ctx, "prefetch failed, deferring to access time",
		"sample", sampleID,
		"error", err,
	)
}

// LogEpochStart logs the start of a new iteration pass.
func (l *Logger) LogEpochStart(ctx context.Context, epoch int, samples int64) {
	l.DebugContext(ctx, "epoch started",
		"epoch", epoch,
		"samples", samples,
	)
}
