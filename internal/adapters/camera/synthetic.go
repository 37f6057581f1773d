// Package camera provides frame sources for the capture pipeline.
package camera

import (
	"context"
	"sync"
	"time"

	"github.com/llavero/llavero/internal/domain/model"
)

// Synthetic is a deterministic in-memory Source. It renders a flat
// background with one bright block whose position callers move to fake
// motion. Used by tests and by the kiosk's --synthetic mode when no
// hardware is attached.
type Synthetic struct {
	mu     sync.Mutex
	open   bool
	width  int
	height int
	blockX int
	blockY int
	block  int // block edge length in pixels
}

// NewSynthetic creates a synthetic source at the given resolution.
func NewSynthetic(width, height int) *Synthetic {
	return &Synthetic{
		width:  width,
		height: height,
		block:  minDim(width, height) / 4,
	}
}

// Open marks the source as acquired. A second open returns ErrBusy.
func (s *Synthetic) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return ErrBusy
	}
	s.open = true
	return nil
}

// Grab renders the current scene into a fresh frame.
func (s *Synthetic) Grab(ctx context.Context) (*model.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, ErrNotOpen
	}

	pix := make([]byte, s.width*s.height*model.BytesPerPixel)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			off := (y*s.width + x) * model.BytesPerPixel
			v := byte(20) // dark background
			if x >= s.blockX && x < s.blockX+s.block &&
				y >= s.blockY && y < s.blockY+s.block {
				v = 220 // bright block
			}
			pix[off] = v
			pix[off+1] = v
			pix[off+2] = v
			pix[off+3] = 255
		}
	}
	return model.NewFrame(s.width, s.height, pix, time.Now()), nil
}

// MoveBlock shifts the bright block, faking motion on the next grab.
// Coordinates clamp to the frame.
func (s *Synthetic) MoveBlock(dx, dy int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockX = clamp(s.blockX+dx, 0, s.width-s.block)
	s.blockY = clamp(s.blockY+dy, 0, s.height-s.block)
}

// Resolution returns the configured resolution.
func (s *Synthetic) Resolution() (int, int) {
	return s.width, s.height
}

// Close releases the source. Idempotent.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minDim(a, b int) int {
	if a < b {
		return a
	}
	return b
}
