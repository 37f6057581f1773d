// Package capture implements the motion-gated capture state machine.
package capture

import "time"

// Option applies a configuration option to the Machine.
type Option func(*Machine)

// WithSettle sets the quiet window that must elapse after motion stops
// before a capture fires.
func WithSettle(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.settle = d
		}
	}
}

// WithoutPreArm starts the machine in Idle instead of an already-elapsed
// settle window, requiring real motion before the first capture.
func WithoutPreArm() Option {
	return func(m *Machine) {
		m.state = StateIdle
	}
}
