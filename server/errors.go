package server

import "errors"

var (
	// ErrTargetNotFound is returned when sending to a client that was never
	// registered or has already disconnected. It reflects the inherent race
	// between disconnection and an in-flight reply and is expected,
	// recoverable, and non-fatal.
	ErrTargetNotFound = errors.New("target client not found")

	// ErrServerClosed is returned by Start after Shutdown has been called.
	ErrServerClosed = errors.New("server closed")

	// ErrAlreadyStarted is returned by Start when the server is running.
	ErrAlreadyStarted = errors.New("server already started")
)
