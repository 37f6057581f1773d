// Package motion implements frame-difference motion detection.
package motion

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithPixelThreshold sets the per-pixel mean channel difference (0-255)
// above which a pixel counts as changed.
func WithPixelThreshold(threshold int) Option {
	return func(d *Detector) {
		if threshold > 0 {
			d.pixelThreshold = threshold
		}
	}
}

// WithMotionFraction sets the changed-pixel fraction above which motion is
// declared.
func WithMotionFraction(fraction float64) Option {
	return func(d *Detector) {
		if fraction > 0 {
			d.motionFraction = fraction
		}
	}
}

// WithStride sets the horizontal pixel sampling stride. A stride of 1
// samples every pixel; larger strides trade accuracy for speed on large
// frames.
func WithStride(stride int) Option {
	return func(d *Detector) {
		if stride > 0 {
			d.stride = stride
		}
	}
}
