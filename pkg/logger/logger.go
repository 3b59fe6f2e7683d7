package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// New returns a production-friendly structured logger.
// No business logic should depend on logging implementation details.
func New(appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ShutdownFlush forces the final OS-level flush of the log destination before
// exit. Handlers write unbuffered, so only stdout's own buffer can still hold
// bytes; the sync is best-effort because stdout may be a pipe or terminal.
func ShutdownFlush(ctx context.Context, grace time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	flushCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = os.Stdout.Sync()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-flushCtx.Done():
		return flushCtx.Err()
	}
}
