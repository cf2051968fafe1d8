package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wricardo/mazed/game/levels"
	"github.com/wricardo/mazed/game/protocol"
	"github.com/wricardo/mazed/game/registry"
	"github.com/wricardo/mazed/game/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	hub  *Hub
	host *session.Host
	url  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hub := NewHub(zerolog.Nop())

	reg := registry.New()
	reg.MustRegister(levels.BlindDescriptor(zerolog.Nop()))
	reg.Seal()
	host := session.NewHost(reg, session.WithObserver(hub.Publish))

	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", hub.ServeWS)
	mux.Handle("/ws", NewPlayHandler(ctx, protocol.NewDriver(host), zerolog.Nop()))
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		cancel()
		<-hubDone
		host.Shutdown()
		srv.Close()
	})
	return &fixture{hub: hub, host: host, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func (f *fixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func do(t *testing.T, conn *websocket.Conn, line string) string {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(line)))
	return read(t, conn)
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func readEvent(t *testing.T, conn *websocket.Conn) session.Event {
	t.Helper()
	var e session.Event
	require.NoError(t, json.Unmarshal([]byte(read(t, conn)), &e))
	return e
}

func TestPlayOverWebsocket(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "/ws")

	assert.Equal(t, "NOPE send USER first", do(t, conn, "LEVL test"))
	assert.Equal(t, "DONE", do(t, conn, "USER alice"))
	assert.Equal(t, "DONE", do(t, conn, "LEVL test"))
	assert.Equal(t, "NOPE Zdi vsude okolo.", do(t, conn, "MOVE w"))
	assert.Equal(t, "DATA 0", do(t, conn, "GETW"))
	assert.Equal(t, "NOPE line too long", do(t, conn, "MOVE "+strings.Repeat("w", protocol.MaxLineLength)))
	assert.Equal(t, 1, f.host.Active("test"))

	assert.Equal(t, "DONE", do(t, conn, "QUIT"))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Eventually(t, func() bool { return f.host.Active("test") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClosingSocketEndsSession(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t, "/ws")

	assert.Equal(t, "DONE", do(t, conn, "USER alice"))
	assert.Equal(t, "DONE", do(t, conn, "LEVL test"))
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return f.host.Active("test") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStreamsLifecycleEvents(t *testing.T) {
	f := newFixture(t)
	all := f.dial(t, "/ws/events")
	other := f.dial(t, "/ws/events?level=other")
	require.Eventually(t, func() bool { return f.hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	player := f.dial(t, "/ws")
	assert.Equal(t, "DONE", do(t, player, "USER alice"))
	assert.Equal(t, "DONE", do(t, player, "LEVL test"))

	created := readEvent(t, all)
	assert.Equal(t, session.EventCreated, created.Type)
	assert.Equal(t, "test", created.Level)
	assert.Equal(t, "alice", created.User)
	assert.Equal(t, session.Active, created.Status)
	assert.NotEmpty(t, created.SessionID)

	assert.Equal(t, "DONE", do(t, player, "QUIT"))
	ended := readEvent(t, all)
	assert.Equal(t, session.EventEnded, ended.Type)
	assert.Equal(t, created.SessionID, ended.SessionID)
	assert.Equal(t, session.Disconnected, ended.Status)

	// The filtered subscriber sees nothing until an event for its level.
	f.hub.Publish(session.Event{Type: session.EventRejected, Level: "other", Status: session.LimitExceeded})
	e := readEvent(t, other)
	assert.Equal(t, session.EventRejected, e.Type)
	assert.Equal(t, "other", e.Level)
}

func TestHubDisconnectsOnShutdown(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-hubDone
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Zero(t, hub.Clients())
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	for i := 0; i < sendBuffer+10; i++ {
		hub.Publish(session.Event{Type: session.EventCreated, Level: "test"})
	}
	assert.EqualValues(t, 10, hub.Dropped())
}
