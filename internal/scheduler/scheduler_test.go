package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// A loop that panics must be relaunched, not left dead after the recover.
func TestRunLoopRestartsAfterPanic(t *testing.T) {
	s := &Scheduler{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		restartDelay: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	restarted := make(chan struct{})
	go s.runLoop(ctx, "testLoop", func(ctx context.Context) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		close(restarted)
		<-ctx.Done()
	})

	select {
	case <-restarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop was not restarted after panic; calls=%d", calls.Load())
	}
	if got := calls.Load(); got < 2 {
		t.Fatalf("expected at least 2 loop invocations, got %d", got)
	}
}

// Cancelling the context while waiting out the restart delay must end the
// goroutine instead of relaunching the loop.
func TestRunLoopStopsOnCancelDuringRestartDelay(t *testing.T) {
	s := &Scheduler{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		restartDelay: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		s.runLoop(ctx, "testLoop", func(context.Context) {
			calls.Add(1)
			panic("boom")
		})
		close(done)
	}()

	// Let the first invocation panic, then cancel during the delay.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not exit after context cancellation")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 loop invocation, got %d", got)
	}
}
