// Package camera provides frame sources for the capture pipeline.
package camera

import "time"

// DeviceOption applies a configuration option to a Device.
type DeviceOption func(*Device)

// WithIdealResolution sets the resolution requested first.
func WithIdealResolution(width, height int) DeviceOption {
	return func(d *Device) {
		if width > 0 && height > 0 {
			d.idealW, d.idealH = width, height
		}
	}
}

// WithMinResolution sets the fallback resolution tried when the ideal
// one is refused.
func WithMinResolution(width, height int) DeviceOption {
	return func(d *Device) {
		if width > 0 && height > 0 {
			d.minW, d.minH = width, height
		}
	}
}

// WithGrabTimeout bounds one still capture from the device.
func WithGrabTimeout(d time.Duration) DeviceOption {
	return func(dev *Device) {
		if d > 0 {
			dev.grabTimeout = d
		}
	}
}

// withGrabFunc swaps the capture implementation. Test hook.
func withGrabFunc(f grabFunc) DeviceOption {
	return func(d *Device) {
		if f != nil {
			d.grab = f
		}
	}
}
