package recalc

import (
	"context"
	"sync"
	"sync/atomic"
)

const (
	stateIdle int32 = iota
	stateCalculating
)

// Handle is the completion signal of one rebuild run. Every caller that
// requested the run while it was in flight holds the same handle.
type Handle struct {
	done chan struct{}
	err  error
}

// Done returns a channel that is closed when the run completes.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the run's outcome. It returns nil while the run is still in
// flight; check Done first to distinguish "still running" from "succeeded".
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the run completes or the context is cancelled.
// Cancellation abandons the wait only; the run itself is never cancelled.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

// Guard serializes full snapshot rebuilds. Exactly one run may be in flight;
// callers that request a run while one is active get the in-flight handle
// back instead of starting a second run.
type Guard struct {
	state    atomic.Int32
	mu       sync.Mutex
	inFlight *Handle
}

// Run executes fn on its own goroutine if no run is in flight, returning a
// new handle and true. If a run is already in flight, it returns that run's
// handle and false without starting anything.
//
// The Calculating state is entered before fn starts (so the winner is the
// only goroutine that may touch the snapshot store) and left only after fn
// returns, success or failure.
func (g *Guard) Run(fn func() error) (*Handle, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.state.CompareAndSwap(stateIdle, stateCalculating) {
		return g.inFlight, false
	}

	h := &Handle{done: make(chan struct{})}
	g.inFlight = h

	go func() {
		err := fn()
		h.err = err
		g.state.Store(stateIdle)
		close(h.done)
	}()

	return h, true
}

// Calculating reports whether a run is in flight. It is advisory: callers
// may still call Run concurrently and will simply be coalesced.
func (g *Guard) Calculating() bool {
	return g.state.Load() == stateCalculating
}
