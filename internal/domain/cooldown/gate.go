// Package cooldown defines the interface for identification attempt gating.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// Gate serializes identification attempts and suppresses duplicates after
// a successful match.
type Gate interface {
	// TryBegin atomically claims the single in-flight attempt slot.
	// Returns false when an attempt is already pending or the cooldown
	// window from the last match is still open; the caller must then
	// drop the frame, not queue it.
	TryBegin(ctx context.Context) bool

	// Finish releases the slot claimed by TryBegin. A matched outcome
	// opens the cooldown window; no-match and failed outcomes do not,
	// so the next settle cycle can try again immediately.
	Finish(ctx context.Context, matched bool)

	// Pending reports whether an attempt currently holds the slot.
	Pending() bool

	// CoolingUntil returns when the current cooldown window closes.
	// The zero time means no window is open.
	CoolingUntil() time.Time
}

// defaultCooldown suppresses repeat identifications of one continuous
// presence while the person is still standing in front of the camera.
const defaultCooldown = 5000 * time.Millisecond

// inMemoryGate implements Gate with a mutex-guarded pending flag and a
// cooldown deadline. All state is per-gate, constructed per session, so
// tests and parallel sessions stay isolated.
type inMemoryGate struct {
	mu           sync.Mutex
	pending      bool
	coolingUntil time.Time
	cooldown     time.Duration
	now          func() time.Time
}

// NewGate creates a gate with configuration options.
func NewGate(opts ...Option) Gate {
	g := &inMemoryGate{
		cooldown: defaultCooldown,
		now:      time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// TryBegin atomically claims the attempt slot.
func (g *inMemoryGate) TryBegin(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending {
		return false
	}
	if !g.coolingUntil.IsZero() && g.now().Before(g.coolingUntil) {
		return false
	}

	g.pending = true
	return true
}

// Finish releases the slot and opens the cooldown window on a match.
func (g *inMemoryGate) Finish(ctx context.Context, matched bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.pending {
		return
	}
	g.pending = false
	if matched {
		g.coolingUntil = g.now().Add(g.cooldown)
	}
}

// Pending reports whether an attempt currently holds the slot.
func (g *inMemoryGate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// CoolingUntil returns when the current cooldown window closes.
func (g *inMemoryGate) CoolingUntil() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.coolingUntil
}
