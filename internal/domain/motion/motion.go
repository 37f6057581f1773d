// Package motion implements frame-difference motion detection.
//
// The comparison is a deliberately cheap, resolution-dependent heuristic
// chosen for real-time responsiveness without a detection model: per
// sampled pixel, the mean absolute difference across the R/G/B channels
// decides whether that pixel changed, and the changed-pixel fraction
// decides whether the pair of frames shows significant motion.
package motion

import (
	"time"

	"github.com/llavero/llavero/internal/domain/model"
)

// Default detection configuration constants.
const (
	defaultPixelThreshold = 40   // per-channel mean difference, 0-255 scale
	defaultMotionFraction = 0.07 // changed/total ratio above which motion is declared
	defaultStride         = 1    // sample every pixel (each 4-byte RGBA group)

	channelsPerPixel = 3 // R, G, B; alpha is skipped
)

// Detector compares consecutive frames. It is stateless: both frames are
// explicit arguments, so callers own the current/previous bookkeeping.
type Detector struct {
	pixelThreshold int
	motionFraction float64
	stride         int
}

// NewDetector creates a detector with configuration options.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		pixelThreshold: defaultPixelThreshold,
		motionFraction: defaultMotionFraction,
		stride:         defaultStride,
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Compare derives a motion sample from two consecutive frames. A nil
// previous frame is the bootstrap case and reports no motion. Frames of
// mismatched dimensions are compared over their common region.
func (d *Detector) Compare(current, previous *model.Frame) model.MotionSample {
	now := time.Now()
	if current != nil {
		now = current.Timestamp
	}

	sample := model.MotionSample{Timestamp: now}
	if current == nil || previous == nil {
		return sample
	}

	w := minInt(current.Width, previous.Width)
	h := minInt(current.Height, previous.Height)
	if w <= 0 || h <= 0 {
		return sample
	}

	// Mean per-channel difference stays on integers: mean > threshold is
	// equivalent to the channel sum exceeding 3*threshold.
	sumThreshold := d.pixelThreshold * channelsPerPixel

	for y := 0; y < h; y++ {
		curRow := y * current.Width * model.BytesPerPixel
		prevRow := y * previous.Width * model.BytesPerPixel
		for x := 0; x < w; x += d.stride {
			ci := curRow + x*model.BytesPerPixel
			pi := prevRow + x*model.BytesPerPixel
			if ci+2 >= len(current.Pix) || pi+2 >= len(previous.Pix) {
				continue // malformed buffer; skip rather than panic
			}

			diff := absDiff(current.Pix[ci], previous.Pix[pi]) +
				absDiff(current.Pix[ci+1], previous.Pix[pi+1]) +
				absDiff(current.Pix[ci+2], previous.Pix[pi+2])

			sample.TotalPixels++
			if diff > sumThreshold {
				sample.ChangedPixels++
			}
		}
	}

	return sample
}

// Motion reports whether the sample crosses this detector's motion fraction.
func (d *Detector) Motion(sample model.MotionSample) bool {
	return sample.Motion(d.motionFraction)
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
