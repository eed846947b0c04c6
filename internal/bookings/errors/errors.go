package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	// ErrTransitionRejected means the booking exists but its current state
	// does not admit the requested transition.
	ErrTransitionRejected = errors.New("booking transition rejected")

	ErrReferenceExhausted = errors.New("could not allocate a unique booking reference")
)
