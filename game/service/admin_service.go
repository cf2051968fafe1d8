package service

import (
	"context"

	"github.com/wricardo/mazed/game/level"
	"github.com/wricardo/mazed/game/session"
)

// AdminService defines the read and control operations exposed to
// operators over REST and MCP
type AdminService interface {
	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	GetLevel(ctx context.Context, code string) (*LevelInfo, error)

	// Sessions
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	KickSession(ctx context.Context, sessionID string) error
	ListHistory(ctx context.Context) ([]*SessionInfo, error)

	// Health
	Health(ctx context.Context) *HealthInfo
}

// LevelCatalog resolves registered levels
type LevelCatalog interface {
	Descriptors() []level.Descriptor
	Resolve(code string) (level.Descriptor, error)
}

// SessionHost exposes the live sessions of the host
type SessionHost interface {
	Sessions() []*session.Session
	Session(id string) (*session.Session, error)
	Kick(id string) error
	Active(code string) int
	Recorder() session.Recorder
}
