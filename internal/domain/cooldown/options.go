// Package cooldown defines the interface for identification attempt gating.
package cooldown

import "time"

// Option applies a configuration option to the gate.
type Option func(*inMemoryGate)

// WithCooldown sets the suppression window opened after a matched
// identification.
func WithCooldown(d time.Duration) Option {
	return func(g *inMemoryGate) {
		if d > 0 {
			g.cooldown = d
		}
	}
}

// WithNowFunc overrides the clock, letting tests drive the cooldown
// window deterministically.
func WithNowFunc(now func() time.Time) Option {
	return func(g *inMemoryGate) {
		if now != nil {
			g.now = now
		}
	}
}
