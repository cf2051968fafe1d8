package level

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDescriptor = errors.New("invalid level descriptor")
	ErrDuplicateCode     = errors.New("duplicate level code")
	ErrUnknownLevel      = errors.New("unknown level")
	ErrQueryFailed       = errors.New("query failed")
)

// DuplicateCodeError is returned when a code is registered twice.
type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("level %q is already registered", e.Code)
}

func (e *DuplicateCodeError) Is(target error) bool { return target == ErrDuplicateCode }

// UnknownLevelError is returned when no level is registered under Code.
type UnknownLevelError struct {
	Code string
}

func (e *UnknownLevelError) Error() string {
	return fmt.Sprintf("unknown level %q", e.Code)
}

func (e *UnknownLevelError) Is(target error) bool { return target == ErrUnknownLevel }

// QueryFailure carries the message of a query that produced no value.
type QueryFailure struct {
	Message string
}

func (e *QueryFailure) Error() string {
	if e.Message == "" {
		return "query failed"
	}
	return e.Message
}

func (e *QueryFailure) Is(target error) bool { return target == ErrQueryFailed }
