package tcp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

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

func startServer(t *testing.T) (addr string, host *session.Host, stop func() error) {
	t.Helper()
	reg := registry.New()
	reg.MustRegister(levels.BlindDescriptor(zerolog.Nop()))
	reg.Seal()
	host = session.NewHost(reg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{Driver: protocol.NewDriver(host)}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	var once sync.Once
	var serveErr error
	stop = func() error {
		once.Do(func() {
			cancel()
			serveErr = <-errc
			host.Shutdown()
		})
		return serveErr
	}
	t.Cleanup(func() { _ = stop() })
	return ln.Addr().String(), host, stop
}

type lineClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func connect(t *testing.T, addr string) *lineClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &lineClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *lineClient) do(line string) string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetDeadline(time.Now().Add(2*time.Second)))
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	require.NoError(c.t, err)
	return c.read()
}

func (c *lineClient) read() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimSpace(reply)
}

func TestServeSessions(t *testing.T) {
	addr, host, _ := startServer(t)

	alice := connect(t, addr)
	assert.Equal(t, "DONE", alice.do("USER alice"))
	assert.Equal(t, "DONE", alice.do("LEVL test"))

	bob := connect(t, addr)
	assert.Equal(t, "DONE", bob.do("USER bob"))
	assert.Equal(t, "DONE", bob.do("LEVL test"))

	carol := connect(t, addr)
	assert.Equal(t, "DONE", carol.do("USER carol"))
	assert.Equal(t, "NOPE level is full", carol.do("LEVL test"))

	assert.Equal(t, "NOPE Zdi vsude okolo.", alice.do("MOVE w"))
	assert.Equal(t, 2, host.Active("test"))

	assert.Equal(t, "DONE", alice.do("QUIT"))
	assert.Eventually(t, func() bool { return host.Active("test") == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "DONE", carol.do("WAIT"))
	assert.Equal(t, "DATA 0", carol.do("GETX"))
}

func TestShutdownEndsConnections(t *testing.T) {
	addr, host, stop := startServer(t)

	c := connect(t, addr)
	assert.Equal(t, "DONE", c.do("USER alice"))
	assert.Equal(t, "DONE", c.do("LEVL test"))

	require.NoError(t, stop())
	assert.Equal(t, "OVER server shutting down", c.read())
	assert.Zero(t, host.Active("test"))

	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
}
