// Package camera provides frame sources for the capture pipeline.
//
// A source wraps exclusive access to one camera device per session. Open
// negotiates a resolution (ideal first, then the minimum fallback) and
// Grab returns uniformly-sized stills at whatever resolution was granted.
package camera

import (
	"context"

	"github.com/llavero/llavero/internal/domain/model"
)

// Default resolution targets.
const (
	IdealWidth  = 1280
	IdealHeight = 720
	MinWidth    = 640
	MinHeight   = 480
)

// Source produces still frames from a camera.
type Source interface {
	// Open acquires the device and negotiates a resolution. Opening an
	// already-open source returns ErrBusy; a missing or denied device
	// returns ErrCameraUnavailable.
	Open(ctx context.Context) error

	// Grab captures one still frame at the granted resolution.
	Grab(ctx context.Context) (*model.Frame, error)

	// Resolution returns the granted width and height. Zero until Open
	// succeeds.
	Resolution() (width, height int)

	// Close releases the device. Idempotent and safe to call multiple
	// times.
	Close() error
}
