// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"time"

	"github.com/llavero/llavero/internal/adapters/camera"
	"github.com/llavero/llavero/internal/adapters/recognition"
	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/internal/pipeline/dispatch"
	"github.com/llavero/llavero/internal/pipeline/presence"
	"github.com/llavero/llavero/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSourceFactory sets how each session acquires its camera.
func WithSourceFactory(factory func() camera.Source) Option {
	return func(s *Service) {
		if factory != nil {
			s.newSource = factory
		}
	}
}

// WithRecognitionClient sets the recognition backend client.
func WithRecognitionClient(client *recognition.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.reco = client
		}
	}
}

// WithMotionInterval sets the motion detection tick period.
func WithMotionInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.motionInterval = d
		}
	}
}

// WithPixelThreshold sets the per-pixel change threshold.
func WithPixelThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.pixelThreshold = threshold
		}
	}
}

// WithMotionFraction sets the changed-pixel motion fraction.
func WithMotionFraction(fraction float64) Option {
	return func(s *Service) {
		if fraction > 0 {
			s.motionFraction = fraction
		}
	}
}

// WithSettle sets the quiet window before a capture fires.
func WithSettle(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.settle = d
		}
	}
}

// WithCooldown sets the post-match suppression window.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldownWindow = d
		}
	}
}

// WithPresenceInterval sets the enrollment face-check tick period.
func WithPresenceInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.presenceInterval = d
		}
	}
}

// WithEnrollFrames sets how many photos one enrollment needs.
func WithEnrollFrames(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.enrollFrames = n
		}
	}
}

// WithFrameQueueSize bounds the capture frame queue.
func WithFrameQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.frameQueueSize = size
		}
	}
}

// WithJournalSize bounds the identification history.
func WithJournalSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.journalSize = size
		}
	}
}

// WithMaxRecentLimit caps the recent-identifications query limit.
func WithMaxRecentLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxRecentLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// withDispatcherFactory swaps the dispatcher construction. Test hook.
func withDispatcherFactory(factory dispatcherFactory) Option {
	return func(s *Service) {
		if factory != nil {
			s.newDispatcher = factory
		}
	}
}

// withValidatorFactory swaps the validator construction. Test hook.
func withValidatorFactory(factory validatorFactory) Option {
	return func(s *Service) {
		if factory != nil {
			s.newValidator = factory
		}
	}
}

// defaultDispatcherFactory wires the real identification loop.
func defaultDispatcherFactory(s *Service, sess *session) Dispatcher {
	return dispatch.NewDispatcher(sess.queue, s.reco, sess.gate, s.journal)
}

// defaultValidatorFactory wires the real presence check. Probes reuse
// the motion loop's latest frame instead of grabbing a second stream
// from the device.
func defaultValidatorFactory(s *Service, sess *session) Validator {
	return presence.NewValidator(
		&latestGrabber{s: s, sess: sess},
		s.reco,
		presence.WithInterval(s.presenceInterval),
	)
}

// latestGrabber serves the session's most recent preview frame.
type latestGrabber struct {
	s    *Service
	sess *session
}

func (g *latestGrabber) Grab(ctx context.Context) (*model.Frame, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	if g.sess.latest == nil {
		return nil, ErrNoFrame
	}
	return g.sess.latest, nil
}
