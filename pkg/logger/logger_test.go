package logger

import (
	"context"
	"testing"
	"time"
)

func TestShutdownFlush_Completes(t *testing.T) {
	if err := ShutdownFlush(context.Background(), time.Second); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestShutdownFlush_HonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ShutdownFlush(ctx, time.Second); err == nil {
		t.Fatalf("expected context error")
	}
}
