// Package repository defines the identification journal interface and errors.
package repository

import (
	"context"
	"sync"

	"github.com/llavero/llavero/internal/domain/types"
	"github.com/llavero/llavero/pkg/metrics"
)

// defaultCapacity bounds the journal; the kiosk only ever shows the
// recent history, so old records age out.
const defaultCapacity = 100

// RingStore implements Journal with a fixed-size ring buffer.
type RingStore struct {
	mu       sync.RWMutex
	records  []types.IdentificationRecord
	capacity int
	head     int // next write position
	size     int
}

// NewRingStore creates a journal with configuration options.
func NewRingStore(opts ...Option) *RingStore {
	s := &RingStore{
		capacity: defaultCapacity,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.records = make([]types.IdentificationRecord, s.capacity)

	metrics.UpdateJournalSize(0)

	return s
}

// Record appends a resolved identification, evicting the oldest record
// once at capacity.
func (s *RingStore) Record(ctx context.Context, rec types.IdentificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[s.head] = rec
	s.head = (s.head + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}

	metrics.UpdateJournalSize(s.size)
	return nil
}

// Recent returns up to limit records, newest first.
func (s *RingStore) Recent(ctx context.Context, limit int) ([]types.IdentificationRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := limit
	if n > s.size {
		n = s.size
	}

	out := make([]types.IdentificationRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.head - i + s.capacity) % s.capacity
		out = append(out, s.records[idx])
	}
	return out, nil
}

// Count returns the number of records currently held.
func (s *RingStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
