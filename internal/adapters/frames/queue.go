// Package frames defines the contract for handing capture frames to the
// identification dispatcher.
//
// The queue deliberately favors recency over completeness: it is tiny and
// a frame that does not fit is dropped, because the next settle cycle will
// produce a fresher one anyway.
package frames

import (
	"context"
	"sync"

	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame to the queue.
	// Returns false if the queue is full and the frame was dropped.
	Enqueue(ctx context.Context, f *model.Frame) bool

	// Dequeue returns a channel that will receive frames as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan *model.Frame

	// Len returns the current number of queued frames.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new frames can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan *model.Frame
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	q.frames = make(chan *model.Frame, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a frame to the queue, dropping it when full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f *model.Frame) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("frames", "closed")
		return false
	}

	select {
	case q.frames <- f:
		metrics.UpdateQueueSize(len(q.frames))
		return true
	case <-ctx.Done():
		metrics.RecordErrorByComponent("frames", "context_cancelled")
		return false
	default:
		metrics.RecordFrameDropped(metrics.DropReasonQueue)
		return false // queue is full, drop
	}
}

// Dequeue returns a channel that will receive frames as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan *model.Frame {
	out := make(chan *model.Frame)
	go func() {
		defer close(out)
		for f := range q.frames {
			select {
			case out <- f:
				metrics.UpdateQueueSize(len(q.frames))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.frames)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	close(q.frames)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
