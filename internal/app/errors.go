// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrSessionActive  = errors.New("a session is already open")
	ErrNoSession      = errors.New("no open session")
	ErrInvalidMode    = errors.New("invalid session mode")
	ErrWrongMode      = errors.New("operation not valid in this session mode")
	ErrNoFrame        = errors.New("no frame grabbed yet")
	ErrNoFaceDetected = errors.New("no face detected")
)
