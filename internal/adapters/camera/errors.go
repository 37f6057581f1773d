// Package camera provides frame sources for the capture pipeline.
package camera

import "errors"

var (
	// ErrCameraUnavailable means no usable device could be acquired.
	// Fatal to the session that tried to open it.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrBusy means the source is already open. One source holds the
	// device exclusively per session.
	ErrBusy = errors.New("camera already open")

	// ErrNotOpen means Grab was called before Open or after Close.
	ErrNotOpen = errors.New("camera not open")
)
