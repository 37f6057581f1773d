// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
//
// One Service owns at most one camera session at a time. A session runs
// in one of two mutually exclusive modes: identify (automatic,
// motion-gated capture feeding the identification dispatcher) or enroll
// (manual capture gated by the face presence validator).
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/llavero/llavero/internal/adapters/camera"
	"github.com/llavero/llavero/internal/adapters/frames"
	"github.com/llavero/llavero/internal/adapters/recognition"
	"github.com/llavero/llavero/internal/adapters/repository"
	"github.com/llavero/llavero/internal/domain/capture"
	"github.com/llavero/llavero/internal/domain/cooldown"
	"github.com/llavero/llavero/internal/domain/enroll"
	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/internal/domain/motion"
	"github.com/llavero/llavero/internal/domain/types"
	"github.com/llavero/llavero/pkg/logger"
	"github.com/llavero/llavero/pkg/metrics"
)

// Session modes.
const (
	ModeIdentify = "identify"
	ModeEnroll   = "enroll"
)

// maxConsecutiveGrabErrors ends a session whose camera stopped
// delivering frames; a tick firing on a dead device would otherwise
// error forever.
const maxConsecutiveGrabErrors = 25

// session bundles all per-session state so parallel sessions in tests
// stay isolated and nothing outlives Close.
type session struct {
	mode      string
	subjectID string
	source    camera.Source
	detector  *motion.Detector
	machine   *capture.Machine
	gate      cooldown.Gate
	queue     *frames.InMemoryQueue
	collector *enroll.Collector

	// enrollMu serializes collector access so the enrollment upload
	// can run without holding mu. Lock order: enrollMu before mu.
	enrollMu sync.Mutex

	// Lifecycle of the session's periodic ticks.
	cancel context.CancelFunc
	loops  sync.WaitGroup

	// Guarded by the owning Service's mu. enrollHeld and enrollReady
	// mirror the collector so stats never wait on an in-flight upload.
	prev        *model.Frame
	latest      *model.Frame
	errored     bool
	enrollHeld  int
	enrollReady bool
	openedAt    time.Time
}

// Service implements the API dependencies for the capture kiosk.
type Service struct {
	mu sync.RWMutex

	// Core components
	journal    repository.Journal
	reco       *recognition.Client
	dispatcher Dispatcher
	validator  Validator
	newSource  func() camera.Source

	// Factories for the per-session loops.
	newDispatcher dispatcherFactory
	newValidator  validatorFactory

	// Configuration
	motionInterval   time.Duration
	pixelThreshold   int
	motionFraction   float64
	settle           time.Duration
	cooldownWindow   time.Duration
	presenceInterval time.Duration
	enrollFrames     int
	frameQueueSize   int
	journalSize      int
	maxRecentLimit   int

	// State
	started bool
	sess    *session

	// Logging
	logger logger.Logger
}

// Dispatcher is the running identification loop of an identify session.
type Dispatcher interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
	LastOutcome() string
	LastMatch() *types.IdentificationRecord
}

// Validator is the running face presence check of an enroll session.
type Validator interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
	Ready() bool
	Status() string
	Suspend()
	Resume()
}

// dispatcherFactory and validatorFactory build the per-session loops.
// Split out so tests can substitute fakes.
type dispatcherFactory func(s *Service, sess *session) Dispatcher
type validatorFactory func(s *Service, sess *session) Validator

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		motionInterval:   100 * time.Millisecond,
		pixelThreshold:   40,
		motionFraction:   0.07,
		settle:           200 * time.Millisecond,
		cooldownWindow:   5000 * time.Millisecond,
		presenceInterval: 1500 * time.Millisecond,
		enrollFrames:     3,
		frameQueueSize:   1,
		journalSize:      100,
		maxRecentLimit:   100,
		newDispatcher:    defaultDispatcherFactory,
		newValidator:     defaultValidatorFactory,
		logger:           nil, // Will be replaced when service starts
	}
	s.newSource = func() camera.Source {
		return camera.NewDevice("/dev/video0")
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components shared across sessions.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting capture service...")

	s.journal = repository.NewRingStore(
		repository.WithCapacity(s.journalSize),
	)
	if s.reco == nil {
		s.reco = recognition.NewClient()
	}

	s.started = true
	s.logger.Info(ctx, "capture service started",
		logger.Duration("motionInterval", s.motionInterval),
		logger.Duration("settle", s.settle),
		logger.Duration("cooldown", s.cooldownWindow),
	)

	return nil
}

// Stop gracefully shuts down the service, closing any open session.
func (s *Service) Stop() {
	ctx := context.Background()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.StopSession(ctx); err != nil && !errors.Is(err, ErrNoSession) {
		s.logger.Error(ctx, "closing session on shutdown", logger.Error(err))
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	s.logger.Info(ctx, "capture service stopped")
}

// StartSession opens the camera and starts the ticks for the given mode.
// Enrollment requires a subject id; identify mode ignores it.
func (s *Service) StartSession(ctx context.Context, mode, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.sess != nil {
		return ErrSessionActive
	}
	switch mode {
	case ModeIdentify:
	case ModeEnroll:
		if subjectID == "" {
			return fmt.Errorf("%w: enrollment needs a subject id", ErrInvalidMode)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	source := s.newSource()
	if err := source.Open(ctx); err != nil {
		return fmt.Errorf("opening camera: %w", err)
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		mode:      mode,
		subjectID: subjectID,
		source:    source,
		detector: motion.NewDetector(
			motion.WithPixelThreshold(s.pixelThreshold),
			motion.WithMotionFraction(s.motionFraction),
		),
		machine: capture.NewMachine(
			capture.WithSettle(s.settle),
		),
		gate: cooldown.NewGate(
			cooldown.WithCooldown(s.cooldownWindow),
		),
		cancel:   cancel,
		openedAt: time.Now(),
	}

	switch mode {
	case ModeIdentify:
		sess.queue = frames.NewInMemoryQueue(
			frames.WithCapacity(s.frameQueueSize),
		)
		// The goroutine runs on a local; the field is cleared by
		// StopSession and must not be re-read here.
		dispatcher := s.newDispatcher(s, sess)
		s.dispatcher = dispatcher
		sess.loops.Add(1)
		go func() {
			defer sess.loops.Done()
			dispatcher.Run(sessCtx)
		}()
	case ModeEnroll:
		sess.collector = enroll.NewCollector(subjectID, s.reco,
			enroll.WithRequired(s.enrollFrames),
		)
		validator := s.newValidator(s, sess)
		s.validator = validator
		sess.loops.Add(1)
		go func() {
			defer sess.loops.Done()
			validator.Run(sessCtx)
		}()
		metrics.UpdateEnrollFramesHeld(0)
	}

	sess.loops.Add(1)
	go func() {
		defer sess.loops.Done()
		s.runMotionLoop(sessCtx, sess)
	}()

	s.sess = sess
	metrics.UpdateSessionActive(true)
	s.logger.Info(ctx, "session opened",
		logger.String("mode", mode),
		logger.String("subjectID", subjectID),
	)
	return nil
}

// StopSession tears the open session down: ticks first, then the camera
// device, then buffered frames and attempt state. A tick firing after
// device release would fail on a dead handle, so the order is fixed.
func (s *Service) StopSession(ctx context.Context) error {
	s.mu.Lock()
	sess := s.sess
	dispatcher := s.dispatcher
	validator := s.validator
	// Claim the session before tearing it down so a second concurrent
	// close is a clean no-op.
	s.sess = nil
	s.dispatcher = nil
	s.validator = nil
	s.mu.Unlock()

	if sess == nil {
		return ErrNoSession
	}

	// 1. Stop all periodic ticks.
	sess.cancel()
	if sess.queue != nil {
		if err := sess.queue.Close(); err != nil {
			s.logger.Error(ctx, "closing frame queue", logger.Error(err))
		}
	}
	if dispatcher != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "dispatcher shutdown", logger.Error(err))
		}
		cancel()
	}
	if validator != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := validator.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "validator shutdown", logger.Error(err))
		}
		cancel()
	}
	sess.loops.Wait()

	// 2. Release the camera device.
	if err := sess.source.Close(); err != nil {
		s.logger.Error(ctx, "closing camera", logger.Error(err))
	}

	// 3. Buffered frames and attempt state die with the session object.
	metrics.UpdateSessionActive(false)
	metrics.UpdateCooldownActive(false)
	s.logger.Info(ctx, "session closed", logger.String("mode", sess.mode))
	return nil
}

// runMotionLoop is the session's perception tick: grab, compare, feed
// the state machine, and hand capture-worthy frames to the dispatcher.
// In enroll mode the loop only refreshes the preview frame; captures are
// manual there.
func (s *Service) runMotionLoop(ctx context.Context, sess *session) {
	ticker := time.NewTicker(s.motionInterval)
	defer ticker.Stop()

	grabErrors := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := sess.source.Grab(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				grabErrors++
				metrics.RecordErrorByComponent("session", "grab_error")
				s.logger.Warn(ctx, "frame grab failed",
					logger.Error(err),
					logger.Int("consecutive", grabErrors),
				)
				if grabErrors >= maxConsecutiveGrabErrors {
					s.markSessionErrored(ctx, sess)
					return
				}
				continue // skip this tick, the next one may succeed
			}
			grabErrors = 0

			s.mu.Lock()
			prev := sess.prev
			sess.prev = frame
			sess.latest = frame
			s.mu.Unlock()

			if sess.mode != ModeIdentify {
				continue
			}

			sample := sess.detector.Compare(frame, prev)
			moving := sess.detector.Motion(sample)
			metrics.RecordMotionTick()
			if moving {
				metrics.RecordMotionDetected()
			}

			// The machine is read by GetStats under mu, so its
			// transitions happen under mu too.
			now := frame.Timestamp
			s.mu.Lock()
			fire := sess.machine.Observe(moving, now)
			s.mu.Unlock()
			if fire {
				s.dispatchFrame(ctx, sess, frame)
				s.mu.Lock()
				sess.machine.Emitted()
				s.mu.Unlock()
			}

			metrics.UpdateCooldownActive(now.Before(sess.gate.CoolingUntil()))
		}
	}
}

// dispatchFrame claims the gate and enqueues one capture frame. Frames
// are dropped, never queued up, when an attempt is pending or a cooldown
// is open.
func (s *Service) dispatchFrame(ctx context.Context, sess *session, frame *model.Frame) {
	metrics.RecordCaptureEvent()

	if !sess.gate.TryBegin(ctx) {
		if sess.gate.Pending() {
			metrics.RecordFrameDropped(metrics.DropReasonInFlight)
		} else {
			metrics.RecordFrameDropped(metrics.DropReasonCooldown)
		}
		return
	}
	if !sess.queue.Enqueue(ctx, frame) {
		// Queue refused the frame; release the slot so the next
		// settle cycle can try again.
		sess.gate.Finish(ctx, false)
	}
}

// markSessionErrored flags the session dead after repeated grab errors.
// The HTTP surface reports it via status; the caller closes it.
func (s *Service) markSessionErrored(ctx context.Context, sess *session) {
	s.mu.Lock()
	sess.errored = true
	s.mu.Unlock()
	s.logger.Error(ctx, "camera stopped delivering frames, session needs closing")
}

// PreviewFrame returns the most recently grabbed frame.
func (s *Service) PreviewFrame() (*model.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sess == nil {
		return nil, ErrNoSession
	}
	if s.sess.latest == nil {
		return nil, ErrNoFrame
	}
	return s.sess.latest, nil
}

// CaptureEnrollFrame adds the current frame to the enrollment set. Only
// valid in enroll mode and only while the presence validator reports a
// face; otherwise the action is rejected and the set is left unchanged.
func (s *Service) CaptureEnrollFrame(ctx context.Context) (int, error) {
	s.mu.RLock()
	sess := s.sess
	validator := s.validator
	var latest *model.Frame
	if sess != nil {
		latest = sess.latest
	}
	s.mu.RUnlock()

	if sess == nil {
		return 0, ErrNoSession
	}
	if sess.mode != ModeEnroll {
		return 0, fmt.Errorf("%w: session mode is %s", ErrWrongMode, sess.mode)
	}

	sess.enrollMu.Lock()
	defer sess.enrollMu.Unlock()
	if validator == nil || !validator.Ready() {
		return sess.collector.Count(), ErrNoFaceDetected
	}
	if latest == nil {
		return sess.collector.Count(), ErrNoFrame
	}

	if err := sess.collector.Add(latest); err != nil {
		return sess.collector.Count(), err
	}
	s.snapshotEnroll(sess)
	return sess.collector.Count(), nil
}

// snapshotEnroll mirrors the collector's state into the session fields
// read by GetStats. Caller holds enrollMu.
func (s *Service) snapshotEnroll(sess *session) {
	held := sess.collector.Count()
	ready := sess.collector.Ready()
	s.mu.Lock()
	sess.enrollHeld = held
	sess.enrollReady = ready
	s.mu.Unlock()
	metrics.UpdateEnrollFramesHeld(held)
}

// RemoveEnrollFrame deletes one enrollment frame by index.
func (s *Service) RemoveEnrollFrame(ctx context.Context, index int) (int, error) {
	s.mu.RLock()
	sess := s.sess
	s.mu.RUnlock()

	if sess == nil {
		return 0, ErrNoSession
	}
	if sess.mode != ModeEnroll {
		return 0, fmt.Errorf("%w: session mode is %s", ErrWrongMode, sess.mode)
	}

	sess.enrollMu.Lock()
	defer sess.enrollMu.Unlock()
	if err := sess.collector.Remove(index); err != nil {
		return sess.collector.Count(), err
	}
	s.snapshotEnroll(sess)
	return sess.collector.Count(), nil
}

// SubmitEnrollment sends the completed set to the backend. The presence
// validator pauses while the upload is in flight. On failure the set is
// left intact so the caller can retry.
func (s *Service) SubmitEnrollment(ctx context.Context) error {
	s.mu.RLock()
	sess := s.sess
	validator := s.validator
	s.mu.RUnlock()

	if sess == nil {
		return ErrNoSession
	}
	if sess.mode != ModeEnroll {
		return fmt.Errorf("%w: session mode is %s", ErrWrongMode, sess.mode)
	}

	if validator != nil {
		validator.Suspend()
		defer validator.Resume()
	}

	// The upload runs outside mu so the motion tick and preview stay
	// live while it is in flight.
	sess.enrollMu.Lock()
	defer sess.enrollMu.Unlock()
	if err := sess.collector.Submit(ctx); err != nil {
		metrics.RecordEnrollSubmission("failed")
		return err
	}
	metrics.RecordEnrollSubmission("ok")
	s.snapshotEnroll(sess)
	s.logger.Info(ctx, "enrollment submitted", logger.String("subjectID", sess.subjectID))
	return nil
}

// RecentIdentifications returns the newest journal records, capped by
// the configured limit.
func (s *Service) RecentIdentifications(ctx context.Context, limit int) ([]types.IdentificationRecord, error) {
	if limit <= 0 || limit > s.maxRecentLimit {
		limit = s.maxRecentLimit
	}
	return s.journal.Recent(ctx, limit)
}

// LastMatch returns the newest matched identification of the open
// identify session, or nil.
func (s *Service) LastMatch() *types.IdentificationRecord {
	s.mu.RLock()
	dispatcher := s.dispatcher
	s.mu.RUnlock()

	if dispatcher == nil {
		return nil
	}
	return dispatcher.LastMatch()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"sessionOpen":    s.sess != nil,
		"journalSize":    s.journalSize,
		"enrollRequired": s.enrollFrames,
	}

	if s.journal != nil {
		stats["journalCount"] = s.journal.Count(ctx)
	}

	if sess := s.sess; sess != nil {
		stats["mode"] = sess.mode
		stats["captureState"] = sess.machine.State().String()
		stats["sessionErrored"] = sess.errored
		stats["openedAt"] = sess.openedAt
		w, h := sess.source.Resolution()
		stats["width"] = w
		stats["height"] = h
		if until := sess.gate.CoolingUntil(); !until.IsZero() {
			stats["coolingUntil"] = until
		}
		if sess.queue != nil {
			stats["queueLength"] = sess.queue.Len(ctx)
		}
		if sess.collector != nil {
			stats["enrollHeld"] = sess.enrollHeld
			stats["enrollReady"] = sess.enrollReady
		}
	}
	if s.dispatcher != nil {
		stats["lastOutcome"] = s.dispatcher.LastOutcome()
	}
	if s.validator != nil {
		stats["presenceReady"] = s.validator.Ready()
		stats["presenceStatus"] = s.validator.Status()
	}

	return stats
}
