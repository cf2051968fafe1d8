package session

import "fmt"

// Status is the lifecycle state of a session.
type Status int32

const (
	Uncreated Status = iota
	Active
	Won
	TimedOut
	Disconnected
	LimitExceeded
	Failed
)

var statusNames = map[Status]string{
	Uncreated:     "uncreated",
	Active:        "active",
	Won:           "won",
	TimedOut:      "timed_out",
	Disconnected:  "disconnected",
	LimitExceeded: "limit_exceeded",
	Failed:        "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Terminal reports whether no further calls are accepted in this status.
func (s Status) Terminal() bool { return s != Uncreated && s != Active }

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for st, name := range statusNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session status %q", text)
}
