package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mazed/game/level"
	"github.com/wricardo/mazed/game/levels"
	"github.com/wricardo/mazed/game/registry"
	"github.com/wricardo/mazed/game/service"
	"github.com/wricardo/mazed/game/session"
)

func setup(t *testing.T, opts ...session.Option) (service.AdminService, *session.Host) {
	t.Helper()
	grid, err := levels.NewGrid(levels.GridConfig{Layout: []string{"S.E", "..."}})
	require.NoError(t, err)

	reg := registry.New()
	reg.MustRegister(levels.BlindDescriptor(zerolog.Nop()))
	reg.MustRegister(level.Descriptor{Code: "corridor", Name: "Corridor", Level: grid})
	reg.Seal()

	host := session.NewHost(reg, opts...)
	t.Cleanup(host.Shutdown)
	return service.NewAdminService(reg, host), host
}

func TestListLevels(t *testing.T) {
	admin, host := setup(t)
	ctx := context.Background()

	_, err := host.Open(ctx, "test", "alice")
	require.NoError(t, err)

	lvls, err := admin.ListLevels(ctx)
	require.NoError(t, err)
	require.Len(t, lvls, 2)

	assert.Equal(t, "corridor", lvls[0].Code)
	assert.Zero(t, lvls[0].MaxConnections)
	assert.Zero(t, lvls[0].MaxDuration)
	assert.True(t, lvls[0].Probe)

	assert.Equal(t, "test", lvls[1].Code)
	assert.Equal(t, 2, lvls[1].MaxConnections)
	assert.Equal(t, 10, lvls[1].MaxDuration)
	assert.Equal(t, 1, lvls[1].Active)
}

func TestGetLevel(t *testing.T) {
	admin, _ := setup(t)

	info, err := admin.GetLevel(context.Background(), "corridor")
	require.NoError(t, err)
	assert.Equal(t, "Corridor", info.Name)

	_, err = admin.GetLevel(context.Background(), "tardis")
	assert.ErrorIs(t, err, level.ErrUnknownLevel)
}

func TestSessions(t *testing.T) {
	admin, host := setup(t)
	ctx := context.Background()

	s, err := host.Open(ctx, "test", "alice")
	require.NoError(t, err)

	list, err := admin.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, s.ID(), list[0].ID)
	assert.Equal(t, "active", list[0].Status)
	assert.True(t, list[0].Live)
	require.NotNil(t, list[0].Deadline)
	assert.WithinDuration(t, list[0].CreatedAt.Add(10*time.Second), *list[0].Deadline, time.Millisecond)

	got, err := admin.GetSession(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "alice", got.User)

	require.NoError(t, admin.KickSession(ctx, s.ID()))
	assert.Equal(t, session.Disconnected, s.Status())

	_, err = admin.GetSession(ctx, s.ID())
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.ErrorIs(t, admin.KickSession(ctx, s.ID()), session.ErrSessionNotFound)

	history, err := admin.ListHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHistory(t *testing.T) {
	rec, err := session.NewFileRecorder(t.TempDir())
	require.NoError(t, err)
	admin, host := setup(t, session.WithRecorder(rec))
	ctx := context.Background()

	s, err := host.Open(ctx, "corridor", "bob")
	require.NoError(t, err)
	_, err = s.Move('d')
	require.NoError(t, err)
	res, err := s.Move('d')
	require.NoError(t, err)
	require.True(t, res.Won)

	got, err := admin.GetSession(ctx, s.ID())
	require.NoError(t, err)
	assert.False(t, got.Live)
	assert.Equal(t, "won", got.Status)
	assert.EqualValues(t, 2, got.Moves)
	assert.Nil(t, got.Deadline)

	history, err := admin.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, s.ID(), history[0].ID)
}

func TestHealth(t *testing.T) {
	admin, host := setup(t)
	_, err := host.Open(context.Background(), "corridor", "u")
	require.NoError(t, err)

	h := admin.Health(context.Background())
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 2, h.Levels)
	assert.Equal(t, 1, h.Sessions)
}
