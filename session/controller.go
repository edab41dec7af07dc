package session

import (
	"context"
	"sync"
)

// live tracks the currently authoritative run of one session.
type live struct {
	generation uint64
	cancel     context.CancelFunc
}

// Controller enforces the one-live-run-per-session rule. Each admitted run
// gets the next generation number; admitting a new run supersedes the
// previous one by firing its cancel function. The lock is held only for the
// map update, never across run execution.
type Controller struct {
	mu   sync.Mutex
	runs map[string]*live
}

// NewController constructs an empty Controller.
func NewController() *Controller {
	return &Controller{runs: make(map[string]*live)}
}

// StartRun admits a new run for sessionID. It returns the run's generation,
// a context derived from parent that is cancelled when the run is superseded
// or explicitly cancelled, and the cancel function of the superseded run (nil
// if none). The caller fires prevCancel after registering the supersede with
// the stream layer, so old subscribers receive their terminal frame.
func (c *Controller) StartRun(parent context.Context, sessionID string) (gen uint64, ctx context.Context, prevCancel context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.runs[sessionID]
	gen = 1
	if prev != nil {
		gen = prev.generation + 1
		prevCancel = prev.cancel
	}
	c.runs[sessionID] = &live{generation: gen, cancel: cancel}
	return gen, ctx, prevCancel
}

// Current returns the live generation for sessionID, or 0 if no run has ever
// been admitted.
func (c *Controller) Current(sessionID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.runs[sessionID]; ok {
		return l.generation
	}
	return 0
}

// Cancel explicitly cancels the live run of sessionID, if any. The
// generation is not reused: a later StartRun continues the sequence.
func (c *Controller) Cancel(sessionID string) bool {
	c.mu.Lock()
	l, ok := c.runs[sessionID]
	var cancel context.CancelFunc
	if ok && l.cancel != nil {
		cancel = l.cancel
	}
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// CancelGeneration cancels the run of sessionID only if gen is still its
// live generation. A run that has been superseded or released is left
// untouched, so a stale caller can never kill a newer run.
func (c *Controller) CancelGeneration(sessionID string, gen uint64) bool {
	c.mu.Lock()
	l, ok := c.runs[sessionID]
	var cancel context.CancelFunc
	if ok && l.generation == gen && l.cancel != nil {
		cancel = l.cancel
	}
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Release marks a finished run as no longer live, but only if gen is still
// the live generation. The generation counter is retained so a later
// StartRun continues the sequence instead of restarting it.
func (c *Controller) Release(sessionID string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.runs[sessionID]; ok && l.generation == gen && l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// IsCurrent reports whether gen is still the live generation of sessionID.
func (c *Controller) IsCurrent(sessionID string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.runs[sessionID]
	return ok && l.generation == gen
}
