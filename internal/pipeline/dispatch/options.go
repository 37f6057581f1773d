// Package dispatch runs the identification loop over captured frames.
package dispatch

import (
	"github.com/llavero/llavero/internal/domain/types"
	"github.com/llavero/llavero/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithName sets the dispatcher name for identification and logging.
func WithName(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.name = name
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(logger logger.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithOnMatch registers a callback invoked for every matched
// identification. The caller owns any business action that follows.
func WithOnMatch(fn func(types.IdentificationRecord)) Option {
	return func(d *Dispatcher) {
		d.onMatch = fn
	}
}
