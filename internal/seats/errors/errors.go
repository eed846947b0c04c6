package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSeatNotFound = errors.New("seat not found")

	ErrSeatUnavailable = errors.New("seat unavailable")

	ErrHoldExpired = errors.New("seat hold expired or released")

	ErrDuplicateSeat = errors.New("seat already exists on flight")
)

// UnavailableError lists every seat that could not be held. It matches
// ErrSeatUnavailable.
type UnavailableError struct {
	Seats []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSeatUnavailable, strings.Join(e.Seats, ", "))
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrSeatUnavailable
}
