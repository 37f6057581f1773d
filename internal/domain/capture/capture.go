// Package capture implements the motion-gated capture state machine.
//
// A presence event (a person stepping in front of the camera) shows up as
// motion followed by stillness. The machine waits for a short quiet window
// after motion before emitting a capture, so frames are neither blurred nor
// mid-transition, and re-arms on renewed motion so a half-arrived subject
// is not captured early.
package capture

import (
	"time"
)

// State is the current phase of the capture controller.
type State int

const (
	// StateIdle is the rest state: no recent motion, nothing pending.
	StateIdle State = iota
	// StateMoving means motion was seen on the latest observation.
	StateMoving
	// StateSettling means motion stopped and the quiet timer is running.
	StateSettling
	// StateCapturing means the settle window elapsed and a frame is due.
	StateCapturing
)

// String returns the state name for logs and status endpoints.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	case StateSettling:
		return "settling"
	case StateCapturing:
		return "capturing"
	default:
		return "unknown"
	}
}

// defaultSettle is the quiet window required before a capture fires.
const defaultSettle = 200 * time.Millisecond

// Machine owns the capture state for one camera session. It is not safe
// for concurrent use; the session's motion tick is its only caller.
type Machine struct {
	state         State
	settlingSince time.Time
	settle        time.Duration
}

// NewMachine creates a pre-armed machine with configuration options.
// Pre-armed means it starts in Settling with an already-elapsed quiet
// window, so the first still observation of a fresh session captures
// immediately without an artificial initial motion event.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		state:  StateSettling,
		settle: defaultSettle,
		// zero settlingSince reads as "elapsed long ago"
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Observe feeds one motion-tick result into the machine and reports
// whether a frame should be captured now. Every call is O(1) and never
// blocks. When it returns true the machine is in Capturing and stays
// there until Emitted is called.
func (m *Machine) Observe(motion bool, now time.Time) bool {
	switch m.state {
	case StateIdle:
		if motion {
			m.state = StateMoving
		}
	case StateMoving:
		if !motion {
			m.state = StateSettling
			m.settlingSince = now
		}
	case StateSettling:
		if motion {
			m.state = StateMoving
			return false
		}
		if now.Sub(m.settlingSince) >= m.settle {
			m.state = StateCapturing
			return true
		}
	case StateCapturing:
		// Waiting for the caller to emit; further ticks are no-ops.
	}
	return false
}

// Emitted acknowledges that the due frame was handed off, returning the
// machine to Idle. Calling it outside Capturing is a no-op.
func (m *Machine) Emitted() {
	if m.state == StateCapturing {
		m.state = StateIdle
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}
