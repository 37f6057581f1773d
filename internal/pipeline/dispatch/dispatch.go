// Package dispatch runs the identification loop over captured frames.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/llavero/llavero/internal/adapters/recognition"
	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/internal/domain/types"
	"github.com/llavero/llavero/pkg/logger"
	"github.com/llavero/llavero/pkg/metrics"
)

// Attempt outcomes surfaced via LastOutcome and metrics labels.
const (
	OutcomeNone    = "none"
	OutcomeMatched = "matched"
	OutcomeNoMatch = "no_match"
	OutcomeFailed  = "failed"
)

// Identifier resolves one frame against the recognition backend. A nil
// result with a nil error means nobody matched.
type Identifier interface {
	Identify(ctx context.Context, frame *model.Frame) (*recognition.IdentifyResult, error)
}

// Queue defines how the dispatcher receives capture frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan *model.Frame
}

// Gate is released after each attempt; a matched release opens the
// cooldown window.
type Gate interface {
	Finish(ctx context.Context, matched bool)
}

// Journal records resolved identifications.
type Journal interface {
	Record(ctx context.Context, rec types.IdentificationRecord) error
}

// Dispatcher consumes capture frames and resolves them one at a time.
// The producer side claims the gate before enqueueing, so at most one
// attempt is ever in flight.
type Dispatcher struct {
	queue      Queue
	identifier Identifier
	gate       Gate
	journal    Journal
	name       string
	onMatch    func(types.IdentificationRecord)

	mu          sync.RWMutex
	lastOutcome string
	lastMatch   *types.IdentificationRecord

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(queue Queue, identifier Identifier, gate Gate, journal Journal, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:       queue,
		identifier:  identifier,
		gate:        gate,
		journal:     journal,
		name:        "dispatch",
		lastOutcome: OutcomeNone,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("dispatch"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	// Set up logger with dispatcher name if not already set
	if d.name != "dispatch" {
		d.logger = d.logger.Named(d.name)
	}

	return d
}

// Run starts the dispatch loop until ctx is canceled, Shutdown is called
// or the queue closes.
func (d *Dispatcher) Run(ctx context.Context) {
	defer func() {
		close(d.done)
	}()

	frameChan := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case frame, ok := <-frameChan:
			if !ok {
				// Channel closed, dispatcher should stop
				return
			}

			if err := d.processFrame(ctx, frame); err != nil {
				d.logger.Error(ctx, "error processing frame", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the dispatcher.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	close(d.shutdown)

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// LastOutcome returns the outcome of the most recent attempt.
func (d *Dispatcher) LastOutcome() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastOutcome
}

// LastMatch returns the most recent matched identification, or nil.
func (d *Dispatcher) LastMatch() *types.IdentificationRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.lastMatch == nil {
		return nil
	}
	rec := *d.lastMatch
	return &rec
}

// processFrame resolves a single frame. The gate was claimed by the
// producer; every path through here releases it exactly once.
func (d *Dispatcher) processFrame(ctx context.Context, frame *model.Frame) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordIdentifyLatency(float64(latency))
	}()

	result, err := d.identifier.Identify(ctx, frame)
	if err != nil {
		d.setOutcome(OutcomeFailed, nil)
		d.gate.Finish(ctx, false)
		metrics.RecordIdentifyAttempt(OutcomeFailed)
		metrics.RecordErrorByComponent("dispatch", "identify_error")
		d.logger.Error(ctx, "identification failed",
			logger.String("frameID", frame.ID),
			logger.Error(err),
		)
		return fmt.Errorf("identifying frame %s: %w", frame.ID, err)
	}

	if result == nil {
		// Expected outcome, likely poor framing; keep trying on the
		// next settle cycle.
		d.setOutcome(OutcomeNoMatch, nil)
		d.gate.Finish(ctx, false)
		metrics.RecordIdentifyAttempt(OutcomeNoMatch)
		d.logger.Debug(ctx, "no match", logger.String("frameID", frame.ID))
		return nil
	}

	rec := types.IdentificationRecord{
		ID:               frame.ID,
		SubjectID:        result.SubjectID,
		Name:             result.Name,
		Distance:         result.Distance,
		MatchCount:       result.MatchCount,
		TotalDescriptors: result.TotalDescriptors,
		At:               time.Now(),
	}

	d.setOutcome(OutcomeMatched, &rec)
	d.gate.Finish(ctx, true)
	metrics.RecordIdentifyAttempt(OutcomeMatched)

	if err := d.journal.Record(ctx, rec); err != nil {
		d.logger.Error(ctx, "journal append failed",
			logger.String("frameID", frame.ID),
			logger.Error(err),
		)
	}
	if d.onMatch != nil {
		d.onMatch(rec)
	}

	d.logger.Info(ctx, "subject identified",
		logger.String("frameID", frame.ID),
		logger.String("subjectID", rec.SubjectID),
		logger.Float64("distance", rec.Distance),
		logger.Int("matchCount", rec.MatchCount),
	)
	return nil
}

func (d *Dispatcher) setOutcome(outcome string, match *types.IdentificationRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastOutcome = outcome
	if match != nil {
		d.lastMatch = match
	}
}
