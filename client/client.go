package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/wricardo/mazed/game/protocol"
)

// ErrClosed is returned by calls made after the connection ended.
var ErrClosed = errors.New("client closed")

// ServerError is a NOPE or OVER reply. After an OVER reply the server has
// closed the connection.
type ServerError struct {
	Kind    protocol.ReplyKind
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + " " + e.Message
}

// Over reports whether the session ended.
func (e *ServerError) Over() bool { return e.Kind == protocol.KindOver }

// isLevelFull reports a LEVL refusal that keeps the level selected for WAIT.
func isLevelFull(err error) bool {
	var serr *ServerError
	return errors.As(err, &serr) && serr.Kind == protocol.KindNope && serr.Message == protocol.MsgLevelFull
}

// IsOver reports whether err is an OVER reply.
func IsOver(err error) bool {
	var serr *ServerError
	return errors.As(err, &serr) && serr.Over()
}

// Options configure the handshake performed by Dial.
type Options struct {
	User  string
	Level string
	// Wait sends WAIT after LEVL, blocking until a slot is free.
	Wait bool
	// Timeout bounds each request; zero means only the context applies.
	Timeout time.Duration
}

// Client speaks the line protocol on one connection. Methods are safe for
// concurrent use but requests are serialized.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration

	mu     sync.Mutex
	over   error
	width  int
	height int
}

// Dial connects to addr, identifies as opts.User, joins opts.Level and
// reads the maze dimensions.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c, err := Start(ctx, conn, opts)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Start performs the handshake on an established connection.
func Start(ctx context.Context, conn net.Conn, opts Options) (*Client, error) {
	c := &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: opts.Timeout,
	}

	if err := c.expectDone(ctx, "USER "+opts.User); err != nil {
		return nil, fmt.Errorf("USER: %w", err)
	}
	if err := c.expectDone(ctx, "LEVL "+opts.Level); err != nil && !(opts.Wait && isLevelFull(err)) {
		return nil, fmt.Errorf("LEVL: %w", err)
	}
	if opts.Wait {
		if err := c.Wait(ctx); err != nil {
			return nil, fmt.Errorf("WAIT: %w", err)
		}
	}

	var err error
	if c.width, err = c.value(ctx, "GETW"); err != nil {
		return nil, fmt.Errorf("GETW: %w", err)
	}
	if c.height, err = c.value(ctx, "GETH"); err != nil {
		return nil, fmt.Errorf("GETH: %w", err)
	}
	return c, nil
}

// Width is the maze width read during the handshake.
func (c *Client) Width() int { return c.width }

// Height is the maze height read during the handshake.
func (c *Client) Height() int { return c.height }

func (c *Client) X(ctx context.Context) (int, error) { return c.value(ctx, "GETX") }
func (c *Client) Y(ctx context.Context) (int, error) { return c.value(ctx, "GETY") }

// What returns the contents of cell (x, y).
func (c *Client) What(ctx context.Context, x, y int) (int, error) {
	return c.value(ctx, "WHAT "+strconv.Itoa(x)+" "+strconv.Itoa(y))
}

// Maze returns every cell, row by row.
func (c *Client) Maze(ctx context.Context) ([]int, error) {
	r, err := c.call(ctx, "MAZE")
	if err != nil {
		return nil, err
	}
	return r.Data, nil
}

// MazeShaped returns the maze indexed as [y][x].
func (c *Client) MazeShaped(ctx context.Context) ([][]int, error) {
	data, err := c.Maze(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) != c.width*c.height {
		return nil, fmt.Errorf("maze has %d cells, expected %dx%d", len(data), c.width, c.height)
	}
	maze := make([][]int, c.height)
	for y := range maze {
		maze[y] = data[y*c.width : (y+1)*c.width]
	}
	return maze, nil
}

// Move sends one move. A refused move returns a NOPE *ServerError
// carrying the level's message; a move that ends the session returns an
// OVER *ServerError.
func (c *Client) Move(ctx context.Context, dir rune) error {
	return c.expectDone(ctx, "MOVE "+string(dir))
}

// Wait blocks until the server admits the client to the selected level.
func (c *Client) Wait(ctx context.Context) error {
	return c.expectDone(ctx, "WAIT")
}

// Close sends QUIT and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.over == nil {
		c.conn.SetDeadline(time.Now().Add(time.Second))
		fmt.Fprint(c.conn, "QUIT\n")
		c.over = ErrClosed
	}
	return c.conn.Close()
}

func (c *Client) expectDone(ctx context.Context, line string) error {
	r, err := c.call(ctx, line)
	if err != nil {
		return err
	}
	if r.Kind != protocol.KindDone {
		return fmt.Errorf("%w: expected DONE, got %s", protocol.ErrMalformedReply, r)
	}
	return nil
}

func (c *Client) value(ctx context.Context, line string) (int, error) {
	r, err := c.call(ctx, line)
	if err != nil {
		return 0, err
	}
	if r.Kind != protocol.KindData || len(r.Data) == 0 {
		return 0, fmt.Errorf("%w: expected DATA, got %s", protocol.ErrMalformedReply, r)
	}
	return r.Data[0], nil
}

// call sends one request and reads its reply. NOPE and OVER replies are
// returned as *ServerError.
func (c *Client) call(ctx context.Context, line string) (protocol.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.over != nil {
		return protocol.Reply{}, c.over
	}

	deadline := time.Time{}
	if c.timeout > 0 {
		deadline = time.Now().Add(c.timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	c.conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { c.conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := fmt.Fprintf(c.conn, "%s\n", line); err != nil {
		return protocol.Reply{}, c.ioError(ctx, err)
	}
	text, err := c.reader.ReadString('\n')
	if err != nil {
		return protocol.Reply{}, c.ioError(ctx, err)
	}
	r, err := protocol.ParseReply(text)
	if err != nil {
		return protocol.Reply{}, err
	}

	switch r.Kind {
	case protocol.KindNope:
		return r, &ServerError{Kind: r.Kind, Message: r.Message}
	case protocol.KindOver:
		c.over = &ServerError{Kind: r.Kind, Message: r.Message}
		return r, c.over
	}
	return r, nil
}

func (c *Client) ioError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		// The connection is mid-request and can no longer be trusted.
		c.over = ctxErr
		return ctxErr
	}
	c.over = ErrClosed
	return fmt.Errorf("%w: %w", ErrClosed, err)
}
