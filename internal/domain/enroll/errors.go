// Package enroll accumulates capture frames for one subject's enrollment.
package enroll

import "errors"

var (
	// ErrSetFull is returned by Add when the set already holds the
	// required number of frames.
	ErrSetFull = errors.New("enrollment set full")

	// ErrInsufficientFrames is returned by Submit when fewer than the
	// required number of frames are held.
	ErrInsufficientFrames = errors.New("insufficient enrollment frames")

	// ErrIndexOutOfRange is returned by Remove for an index outside the
	// held set.
	ErrIndexOutOfRange = errors.New("enrollment frame index out of range")
)
