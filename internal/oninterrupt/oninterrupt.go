// Package oninterrupt cancels a context.Context on SIGINT/SIGTERM and runs
// any registered cleanup hooks first, so in-flight compiler invocations and
// package fetches observe ctx.Done() and unwind instead of being killed
// mid-write. Adapted from the teacher's os.Exit-driven interrupt handler,
// which the teacher itself flagged for replacement with context
// cancellation; ampu carries out that replacement and keeps the cleanup-hook
// registry for handlers that must run synchronously before cancellation
// propagates (e.g. removing a partial package clone).
package oninterrupt

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	onInterruptMu sync.Mutex
	onInterrupt   []func()
)

// Register adds a cleanup callback run once, synchronously, before the
// context returned by Context is cancelled.
func Register(cb func()) {
	onInterruptMu.Lock()
	defer onInterruptMu.Unlock()
	onInterrupt = append(onInterrupt, cb)
}

func runHooks() {
	onInterruptMu.Lock()
	defer onInterruptMu.Unlock()
	for _, f := range onInterrupt {
		f()
	}
}

// Context returns a child of parent that is cancelled when the process
// receives SIGINT or SIGTERM, after running every registered cleanup hook.
// The returned CancelFunc releases the signal handler; callers should defer
// it on the normal exit path.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			runHooks()
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
