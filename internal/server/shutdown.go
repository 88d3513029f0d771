package server

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Coordinator tears down a set of listeners exactly once and then ends the
// process. All listeners are closed concurrently; the process exits with
// status 0 as soon as every close has completed, or with status 1 when the
// grace period elapses first. Whichever happens first wins, and a second
// trigger is a no-op.
type Coordinator struct {
	listeners []Listener
	grace     time.Duration
	exit      func(int)
	once      sync.Once
}

// CoordinatorOption configures a [Coordinator].
type CoordinatorOption func(*Coordinator)

// WithExitFunc replaces the process-exit function. Intended for tests.
func WithExitFunc(fn func(int)) CoordinatorOption {
	return func(c *Coordinator) {
		c.exit = fn
	}
}

// NewCoordinator creates a shutdown coordinator over the given listeners
// with the given grace period.
func NewCoordinator(grace time.Duration, listeners []Listener, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		listeners: listeners,
		grace:     grace,
		exit:      os.Exit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Shutdown closes every listener concurrently, then ends the process: with
// status 0 once all listeners have finished closing, or with status 1 when
// the grace period runs out first. It does not return on the winning path;
// on the losing path (or any repeat call) it returns without effect.
func (c *Coordinator) Shutdown() {
	slog.Info("shutdown started", "listeners", len(c.listeners), "grace", c.grace)

	// Close gets no deadline of its own. A listener that cannot finish
	// draining must never look completed just because the grace period ran
	// out; only the timer below decides the failure path.
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, l := range c.listeners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Close(ctx); err != nil {
				slog.Warn("listener close failed", "name", l.Name(), "error", err)
				return
			}
			slog.Info("listener closed", "name", l.Name())
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(c.grace)
	defer timer.Stop()

	select {
	case <-done:
		c.terminate(0)
	case <-timer.C:
		slog.Error("shutdown grace period elapsed with listeners still open")
		c.terminate(1)
	}
}

func (c *Coordinator) terminate(status int) {
	c.once.Do(func() {
		slog.Info("process terminating", "status", status)
		c.exit(status)
	})
}
