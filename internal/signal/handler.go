// Package signal turns operator interrupts into context cancellation for
// the run pipelines.
//
// The first SIGINT or SIGTERM cancels the run context so the coordinator
// can tear down in order: stop scheduling, kill in-flight commands, remove
// working copies and close the results file. A second signal during that
// teardown closes Forced, letting the CLI give up on cleanup.
//
// Import rules:
//   - CAN import: std lib only
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler wraps a context and cancels it when SIGINT or SIGTERM is received.
type Handler struct {
	ctx         context.Context //nolint:containedctx // intentional: handler manages context lifecycle
	cancel      context.CancelFunc
	parentDone  <-chan struct{}
	interrupted chan struct{}
	forced      chan struct{}
	done        chan struct{} // signals listen() to exit cleanly
	stopOnce    sync.Once
	sigChan     chan os.Signal

	mu       sync.Mutex
	received int
	first    os.Signal
}

// NewHandler creates a signal handler that listens for SIGINT and SIGTERM.
//
// Usage:
//
//	h := signal.NewHandler(ctx)
//	defer h.Stop()
//	err := coord.Bench(h.Context(), variants, sink)
func NewHandler(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		parentDone:  parent.Done(),
		interrupted: make(chan struct{}),
		forced:      make(chan struct{}),
		done:        make(chan struct{}),
		// Buffer of 1 ensures signal.Notify doesn't drop signals if handler is busy.
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context returns the context canceled on the first signal.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted returns a channel that closes on the first signal.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// Forced returns a channel that closes on the second signal.
func (h *Handler) Forced() <-chan struct{} {
	return h.forced
}

// Signal returns the first signal received, or nil.
func (h *Handler) Signal() os.Signal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.first
}

// Stop stops listening for signals and cancels the context.
// Always call this when done to prevent resource leaks.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

// handleSignal records sig. Only the first two signals have an effect.
func (h *Handler) handleSignal(sig os.Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.received++
	switch h.received {
	case 1:
		h.first = sig
		h.cancel()
		close(h.interrupted)
	case 2:
		close(h.forced)
	}
}

// listen keeps receiving after the first signal so a repeated Ctrl+C
// during teardown is still observed.
func (h *Handler) listen() {
	for {
		select {
		case <-h.parentDone:
			return
		case <-h.done:
			return
		case sig := <-h.sigChan:
			h.handleSignal(sig)
		}
	}
}
