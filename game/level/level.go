package level

import (
	"fmt"
	"time"
)

// State is the opaque per-session data a level allocates in Create.
type State any

// Level is the contract a maze level implements.
type Level interface {
	// Create allocates fresh per-session state. An error aborts session
	// creation.
	Create() (State, error)

	// Destroy releases everything owned by s. The host calls it exactly once
	// per successful Create.
	Destroy(s State)

	// Move applies one input symbol to s. It is the only call allowed to
	// mutate s.
	Move(s State, input rune) MoveResult

	X(s State) QueryResult
	Y(s State) QueryResult
	Width(s State) QueryResult
	Height(s State) QueryResult
}

// Prober is implemented by levels that can report the content of a single
// cell. Like the other queries it must not mutate s.
type Prober interface {
	What(s State, x, y int) QueryResult
}

// Descriptor is the static registration record of a level.
type Descriptor struct {
	Code        string
	Name        string
	Description string

	// MaxConnections bounds concurrently active sessions; 0 means unlimited.
	MaxConnections int

	// MaxDuration bounds a single session's wall-clock lifetime; 0 means
	// unlimited.
	MaxDuration time.Duration

	Level Level
}

// Validate checks the descriptor's static fields.
func (d Descriptor) Validate() error {
	switch {
	case d.Code == "":
		return fmt.Errorf("%w: code is required", ErrInvalidDescriptor)
	case d.Level == nil:
		return fmt.Errorf("%w: level %q has no implementation", ErrInvalidDescriptor, d.Code)
	case d.MaxConnections < 0:
		return fmt.Errorf("%w: level %q max_connections must be >= 0, got %d", ErrInvalidDescriptor, d.Code, d.MaxConnections)
	case d.MaxDuration < 0:
		return fmt.Errorf("%w: level %q max_duration must be >= 0, got %s", ErrInvalidDescriptor, d.Code, d.MaxDuration)
	}
	return nil
}

// Unlimited reports whether the level accepts any number of sessions.
func (d Descriptor) Unlimited() bool { return d.MaxConnections == 0 }

// Bounded reports whether sessions of this level have a time limit.
func (d Descriptor) Bounded() bool { return d.MaxDuration > 0 }
