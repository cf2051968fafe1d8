package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wricardo/mazed/game/session"
)

// adminServiceImpl implements the AdminService interface
type adminServiceImpl struct {
	levels LevelCatalog
	host   SessionHost
}

// NewAdminService creates a new admin service instance
func NewAdminService(levels LevelCatalog, host SessionHost) AdminService {
	return &adminServiceImpl{
		levels: levels,
		host:   host,
	}
}

// ListLevels returns every registered level, sorted by code
func (s *adminServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	descs := s.levels.Descriptors()
	out := make([]*LevelInfo, 0, len(descs))
	for _, d := range descs {
		out = append(out, NewLevelInfo(d, s.host.Active(d.Code)))
	}
	return out, nil
}

// GetLevel returns a single level by code
func (s *adminServiceImpl) GetLevel(ctx context.Context, code string) (*LevelInfo, error) {
	d, err := s.levels.Resolve(code)
	if err != nil {
		return nil, err
	}
	return NewLevelInfo(d, s.host.Active(d.Code)), nil
}

// ListSessions returns the live sessions, oldest first
func (s *adminServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	live := s.host.Sessions()
	out := make([]*SessionInfo, 0, len(live))
	for _, sess := range live {
		out = append(out, NewSessionInfo(sess.Info(), true))
	}
	return out, nil
}

// GetSession returns a live session, falling back to the recorded history
func (s *adminServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.host.Session(sessionID)
	if err == nil {
		return NewSessionInfo(sess.Info(), true), nil
	}
	if !errors.Is(err, session.ErrSessionNotFound) {
		return nil, err
	}

	rec := s.host.Recorder()
	if rec == nil {
		return nil, err
	}
	info, err := rec.Load(sessionID)
	if err != nil {
		return nil, err
	}
	return NewSessionInfo(info, false), nil
}

// KickSession disconnects a live session
func (s *adminServiceImpl) KickSession(ctx context.Context, sessionID string) error {
	return s.host.Kick(sessionID)
}

// ListHistory returns recorded sessions, most recent first. Without a
// recorder the history is empty.
func (s *adminServiceImpl) ListHistory(ctx context.Context) ([]*SessionInfo, error) {
	rec := s.host.Recorder()
	if rec == nil {
		return []*SessionInfo{}, nil
	}

	ids, err := rec.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}

	out := make([]*SessionInfo, 0, len(ids))
	for _, id := range ids {
		info, err := rec.Load(id)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, NewSessionInfo(info, false))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Health reports the number of levels and live sessions
func (s *adminServiceImpl) Health(ctx context.Context) *HealthInfo {
	return &HealthInfo{
		Status:   "ok",
		Levels:   len(s.levels.Descriptors()),
		Sessions: len(s.host.Sessions()),
	}
}
