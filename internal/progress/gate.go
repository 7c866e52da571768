package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/desertwitch/gocopy/internal/schema"
)

// Gate is the two-flag primitive controlling a worker: a manual-reset "may
// proceed" signal and an independent cancel flag. Cancelling always opens the
// gate, so that a paused worker wakes up and observes the cancellation.
type Gate struct {
	mu       sync.Mutex
	paused   bool
	proceed  chan struct{}
	canceled atomic.Bool
}

// NewGate returns a pointer to a new [Gate], closed if paused is set.
func NewGate(paused bool) *Gate {
	g := &Gate{
		proceed: make(chan struct{}),
	}

	if !paused {
		close(g.proceed)
	} else {
		g.paused = true
	}

	return g
}

// Pause closes the gate; the next [Gate.Checkpoint] blocks.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		return
	}

	g.paused = true
	g.proceed = make(chan struct{})
}

// Resume opens the gate, waking up any blocked [Gate.Checkpoint].
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.open()
}

// Cancel sets the cancel flag and opens the gate.
func (g *Gate) Cancel() {
	g.canceled.Store(true)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.open()
}

// IsPaused returns whether the gate is closed.
func (g *Gate) IsPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.paused
}

// IsCanceled returns whether the cancel flag is set.
func (g *Gate) IsCanceled() bool {
	return g.canceled.Load()
}

// Checkpoint blocks while the gate is closed. It returns an error wrapping
// [schema.ErrCanceled] when the cancel flag is set, or the context error when
// the context is done while waiting.
func (g *Gate) Checkpoint(ctx context.Context) error {
	if g.canceled.Load() {
		return fmt.Errorf("(progress) %w", schema.ErrCanceled)
	}

	g.mu.Lock()
	proceed := g.proceed
	g.mu.Unlock()

	select {
	case <-proceed:
	case <-ctx.Done():
		return fmt.Errorf("(progress) %w", ctx.Err())
	}

	if g.canceled.Load() {
		return fmt.Errorf("(progress) %w", schema.ErrCanceled)
	}

	return nil
}

// open must be called with the lock held.
func (g *Gate) open() {
	if !g.paused {
		return
	}

	g.paused = false
	close(g.proceed)
}
