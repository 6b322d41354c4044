// Package signal wires SIGINT and SIGTERM into cooperative loop
// shutdown: the orchestrator observes the cancelled context at its next
// iteration boundary instead of being hard-aborted mid-step.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler registers SIGINT and SIGTERM handlers. When a
// signal is received it calls onInterrupt (if non-nil), then cancels
// the context. The listening goroutine exits when either a signal
// arrives or the context is cancelled elsewhere.
func SetupSignalHandler(ctx context.Context, cancel context.CancelFunc, onInterrupt func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			if onInterrupt != nil {
				onInterrupt()
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}()
}
