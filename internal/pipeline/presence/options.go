// Package presence gates manual enrollment captures on a face check.
package presence

import (
	"time"

	"github.com/llavero/llavero/pkg/logger"
)

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithInterval sets the probe tick period.
func WithInterval(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.interval = d
		}
	}
}

// WithLogger sets a custom logger for the validator.
func WithLogger(logger logger.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}
