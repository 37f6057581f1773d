// Package recognition implements the HTTP client for the external face
// recognition backend.
package recognition

import "errors"

var (
	// ErrTransport marks network and backend failures. Callers use it
	// to tell "the call failed" apart from "the backend matched nobody".
	ErrTransport = errors.New("recognition transport failure")
)
