// Package model contains domain models passed between layers.
package model

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// BytesPerPixel is the size of one RGBA pixel group in a frame buffer.
const BytesPerPixel = 4

// Frame is an immutable bitmap snapshot grabbed from the camera.
// The pixel buffer is RGBA, row-major, 4 bytes per pixel. Consumers treat
// frames as read-only; no component retains more than two at once
// (current + previous).
type Frame struct {
	ID        string    // correlation id for logs and attempts
	Width     int
	Height    int
	Pix       []byte // RGBA buffer, len == Width*Height*BytesPerPixel
	Timestamp time.Time
}

// NewFrame builds a frame around an existing RGBA buffer.
func NewFrame(width, height int, pix []byte, ts time.Time) *Frame {
	return &Frame{
		ID:        uuid.NewString(),
		Width:     width,
		Height:    height,
		Pix:       pix,
		Timestamp: ts,
	}
}

// FromImage converts any image into a frame, copying pixels into an RGBA
// buffer.
func FromImage(img image.Image, ts time.Time) *Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != w*BytesPerPixel {
		converted := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				converted.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		rgba = converted
	}

	return NewFrame(w, h, rgba.Pix, ts)
}

// RGBA exposes the frame as an *image.RGBA without copying the buffer.
func (f *Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * BytesPerPixel,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// MotionSample is the result of comparing two consecutive frames.
// Ephemeral: recomputed on every detection tick, never persisted.
type MotionSample struct {
	ChangedPixels int
	TotalPixels   int
	Timestamp     time.Time
}

// Fraction returns the changed-to-total pixel ratio.
func (s MotionSample) Fraction() float64 {
	if s.TotalPixels == 0 {
		return 0
	}
	return float64(s.ChangedPixels) / float64(s.TotalPixels)
}

// Motion reports whether the sample exceeds the given motion fraction.
func (s MotionSample) Motion(fraction float64) bool {
	return s.Fraction() > fraction
}
