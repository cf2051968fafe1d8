package session

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionOver     = errors.New("session is over")
	ErrTimedOut        = fmt.Errorf("%w: time is up", ErrSessionOver)
	ErrLevelFault      = errors.New("level fault")
	ErrNoProbe         = errors.New("level does not support cell queries")
	ErrHostClosed      = errors.New("session host is shut down")

	// ErrLimit and ErrAllocation match *LimitError and *AllocationError
	// with errors.Is.
	ErrLimit      = errors.New("level connection limit reached")
	ErrAllocation = errors.New("level state allocation failed")
)

// LimitError is returned when a level already has MaxConnections active
// sessions.
type LimitError struct {
	Code string
	Max  int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("level %q is full (%d sessions)", e.Code, e.Max)
}

func (e *LimitError) Is(target error) bool { return target == ErrLimit }

// Status reports the terminal status of a refused admission.
func (e *LimitError) Status() Status { return LimitExceeded }

// AllocationError is returned when a level's Create fails or panics.
type AllocationError struct {
	Code string
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("level %q: allocation failed: %v", e.Code, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

func (e *AllocationError) Is(target error) bool { return target == ErrAllocation }

// guard runs fn and converts a panic into an error wrapping ErrLevelFault.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLevelFault, r)
		}
	}()
	fn()
	return nil
}
