package errors

import "errors"

var (
	ErrNotFound = errors.New("payment not found")

	ErrTransitionRejected = errors.New("payment transition rejected")

	// ErrAlreadyPaid means another payment of the same booking is already paid.
	ErrAlreadyPaid = errors.New("booking already has a paid payment")
)
