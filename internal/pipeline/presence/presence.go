// Package presence gates manual enrollment captures on a face check.
//
// The validator runs its own tick, independent of motion detection, and
// probes the recognition backend with a low-quality still. Enrollment and
// automatic identification are mutually exclusive uses of one camera
// session; the session service only runs one of the two.
package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/llavero/llavero/internal/adapters/recognition"
	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/pkg/logger"
	"github.com/llavero/llavero/pkg/metrics"
)

// Default validator configuration constants.
const (
	defaultInterval = 1500 * time.Millisecond

	// Probe results used as metrics labels.
	resultFace    = "face"
	resultNoFace  = "no_face"
	resultError   = "error"
	resultSkipped = "skipped"

	// Human-readable statuses for the enrollment screen.
	StatusReady    = "face detected, ready to capture"
	StatusNoFace   = "no face detected, look at the camera"
	StatusChecking = "checking for a face"
	StatusError    = "face check unavailable, retrying"
)

// Grabber supplies probe frames.
type Grabber interface {
	Grab(ctx context.Context) (*model.Frame, error)
}

// Detector counts faces in a probe frame.
type Detector interface {
	Detect(ctx context.Context, frame *model.Frame) (*recognition.DetectResult, error)
}

// Validator periodically checks that a face is present, setting the flag
// that allows a manual enrollment capture.
type Validator struct {
	grabber  Grabber
	detector Detector
	interval time.Duration

	mu        sync.RWMutex
	ready     bool
	status    string
	probing   bool
	suspended bool

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewValidator creates a validator with configuration options.
func NewValidator(grabber Grabber, detector Detector, opts ...Option) *Validator {
	v := &Validator{
		grabber:  grabber,
		detector: detector,
		interval: defaultInterval,
		status:   StatusChecking,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("presence"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Run starts the probe tick until ctx is canceled or Shutdown is called.
func (v *Validator) Run(ctx context.Context) {
	defer func() {
		close(v.done)
	}()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-v.shutdown:
			return
		case <-ticker.C:
			v.probe(ctx)
		}
	}
}

// Shutdown gracefully stops the validator.
func (v *Validator) Shutdown(ctx context.Context) error {
	close(v.shutdown)

	select {
	case <-v.done:
		return nil
	case <-ctx.Done():
		v.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Ready reports whether a manual capture is currently allowed.
func (v *Validator) Ready() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ready
}

// Status returns the human-readable state for the enrollment screen.
func (v *Validator) Status() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// Suspend pauses probing, used while an enrollment submission is in
// flight so probes do not compete with the upload.
func (v *Validator) Suspend() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.suspended = true
}

// Resume re-enables probing after a suspension.
func (v *Validator) Resume() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.suspended = false
}

// probe runs one validation cycle. A tick that fires while the previous
// probe's network call is still outstanding is skipped, not queued.
func (v *Validator) probe(ctx context.Context) {
	v.mu.Lock()
	if v.probing || v.suspended {
		v.mu.Unlock()
		metrics.RecordPresenceProbe(resultSkipped)
		return
	}
	v.probing = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.probing = false
		v.mu.Unlock()
	}()

	frame, err := v.grabber.Grab(ctx)
	if err != nil {
		v.setState(false, StatusError)
		metrics.RecordPresenceProbe(resultError)
		metrics.RecordErrorByComponent("presence", "grab_error")
		v.logger.Warn(ctx, "probe grab failed", logger.Error(err))
		return
	}

	result, err := v.detector.Detect(ctx, frame)
	if err != nil {
		v.setState(false, StatusError)
		metrics.RecordPresenceProbe(resultError)
		metrics.RecordErrorByComponent("presence", "detect_error")
		v.logger.Warn(ctx, "probe detect failed", logger.Error(err))
		return
	}

	if result.FaceCount > 0 {
		v.setState(true, StatusReady)
		metrics.RecordPresenceProbe(resultFace)
		return
	}
	v.setState(false, StatusNoFace)
	metrics.RecordPresenceProbe(resultNoFace)
}

func (v *Validator) setState(ready bool, status string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ready = ready
	v.status = status
}
