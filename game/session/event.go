package session

import "time"

// EventType identifies a session lifecycle event.
type EventType string

const (
	EventCreated  EventType = "created"
	EventRejected EventType = "rejected"
	EventEnded    EventType = "ended"
)

// Event describes one session lifecycle transition.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Level     string    `json:"level"`
	User      string    `json:"user,omitempty"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Time      time.Time `json:"time"`
}

// Observer receives lifecycle events. It is called synchronously, possibly
// while a session is locked, so it must not block or call back into the
// session.
type Observer func(Event)
