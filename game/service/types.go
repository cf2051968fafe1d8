package service

import (
	"time"

	"github.com/wricardo/mazed/game/level"
	"github.com/wricardo/mazed/game/session"
)

// LevelInfo describes a registered level
type LevelInfo struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	MaxConnections int    `json:"max_connections"`
	MaxDuration    int    `json:"max_duration"` // seconds, 0 = unlimited
	Active         int    `json:"active"`
	Probe          bool   `json:"probe"` // supports WHAT and MAZE
}

// SessionInfo describes a live or recorded session
type SessionInfo struct {
	ID             string     `json:"id"`
	Level          string     `json:"level"`
	User           string     `json:"user"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Moves          int64      `json:"moves"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	Live           bool       `json:"live"`
}

// HealthInfo reports the state of the process
type HealthInfo struct {
	Status   string `json:"status"`
	Levels   int    `json:"levels"`
	Sessions int    `json:"sessions"`
}

// NewLevelInfo builds the public view of a descriptor
func NewLevelInfo(d level.Descriptor, active int) *LevelInfo {
	_, probe := d.Level.(level.Prober)
	return &LevelInfo{
		Code:           d.Code,
		Name:           d.Name,
		Description:    d.Description,
		MaxConnections: d.MaxConnections,
		MaxDuration:    int(d.MaxDuration / time.Second),
		Active:         active,
		Probe:          probe,
	}
}

// NewSessionInfo builds the public view of a session snapshot
func NewSessionInfo(info session.Info, live bool) *SessionInfo {
	out := &SessionInfo{
		ID:             info.ID,
		Level:          info.Level,
		User:           info.User,
		Status:         info.Status.String(),
		CreatedAt:      info.Created,
		Moves:          info.Moves,
		ElapsedSeconds: info.Elapsed.Seconds(),
		Live:           live,
	}
	if !info.Deadline.IsZero() {
		deadline := info.Deadline
		out.Deadline = &deadline
	}
	return out
}
