package protocol

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wricardo/mazed/game/level"
	"github.com/wricardo/mazed/game/session"
	xlog "github.com/wricardo/mazed/internal/log"
)

// Reply messages.
const (
	MsgUnknownLevel  = "unknown level"
	MsgLevelFull     = "level is full"
	MsgLevelFailed   = "level failed to start"
	MsgNoUser        = "send USER first"
	MsgNoLevel       = "send LEVL first"
	MsgNotAdmitted   = "not admitted, send WAIT"
	MsgAlreadyInGame = "already playing"
	MsgNoProbe       = "level has no map"
	MsgMazeTooLarge  = "maze too large"
	MsgSlowDown      = "slow down"
	MsgLineTooLong   = "line too long"
	MsgTimeUp        = "time is up"
	MsgDisconnected  = "disconnected"
	MsgLevelFault    = "level fault"
	MsgSessionOver   = "session is over"
	MsgShuttingDown  = "server shutting down"
)

const (
	// MaxUserLength bounds the USER name.
	MaxUserLength = 64

	// MaxMazeCells bounds the size of a MAZE reply.
	MaxMazeCells = 64 * 64
)

// Host is the part of session.Host the driver uses.
type Host interface {
	Open(ctx context.Context, code, user string) (*session.Session, error)
	Wait(ctx context.Context, code, user string) (*session.Session, error)
}

// Driver runs the line protocol on client connections.
type Driver struct {
	host   Host
	logger zerolog.Logger
	limit  rate.Limit
	burst  int
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithDriverLogger sets the driver's logger.
func WithDriverLogger(logger zerolog.Logger) DriverOption {
	return func(d *Driver) { d.logger = logger }
}

// WithRateLimit limits every connection to r commands per second with the
// given burst. Excess commands are answered with NOPE and not executed.
func WithRateLimit(r rate.Limit, burst int) DriverOption {
	return func(d *Driver) {
		d.limit = r
		d.burst = burst
	}
}

// NewDriver creates a driver admitting sessions through host.
func NewDriver(host Host, opts ...DriverOption) *Driver {
	d := &Driver{host: host, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// connection is the protocol state of one client.
type connection struct {
	driver  *Driver
	conn    Conn
	logger  zerolog.Logger
	limiter *rate.Limiter

	user string
	code string
	sess *session.Session
}

// Serve runs the protocol on conn until the client quits or disconnects,
// the session ends, or ctx is cancelled. The connection is always closed
// and any session it holds torn down before Serve returns.
func (d *Driver) Serve(ctx context.Context, conn Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &connection{
		driver: d,
		conn:   conn,
		logger: d.logger.With().Str(xlog.FieldRemoteAddr, conn.RemoteAddr()).Logger(),
	}
	if d.limit > 0 {
		c.limiter = rate.NewLimiter(d.limit, d.burst)
	}

	type readResult struct {
		line string
		err  error
	}
	lines := make(chan readResult)
	readErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			line, err := conn.ReadLine()
			if err != nil && !errors.Is(err, ErrLineTooLong) {
				readErr <- err
				cancel()
				return
			}
			select {
			case lines <- readResult{line: line, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	defer func() {
		if c.sess != nil {
			c.sess.Close(session.Disconnected)
		}
		conn.Close()
		cancel()
		wg.Wait()
	}()

	c.logger.Debug().Msg("client connected")
	for {
		select {
		case <-ctx.Done():
			select {
			case err := <-readErr:
				if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					c.logger.Debug().Msg("client disconnected")
					return nil
				}
				c.logger.Debug().Err(err).Msg("client read failed")
				return err
			default:
			}
			c.write(Over(MsgShuttingDown))
			return nil

		case <-c.sessionDone():
			c.write(Over(c.endMessage()))
			return nil

		case r := <-lines:
			if r.err != nil {
				if !c.write(Nope(MsgLineTooLong)) {
					return nil
				}
				continue
			}
			reply, quit := c.handle(ctx, r.line)
			if !c.write(reply) || reply.Terminal() || quit {
				return nil
			}
		}
	}
}

func (c *connection) sessionDone() <-chan struct{} {
	if c.sess == nil {
		return nil
	}
	return c.sess.Done()
}

func (c *connection) endMessage() string {
	switch c.sess.Status() {
	case session.TimedOut:
		return MsgTimeUp
	case session.Failed:
		return MsgLevelFault
	case session.Disconnected:
		return MsgDisconnected
	}
	return MsgSessionOver
}

func (c *connection) write(r Reply) bool {
	if err := c.conn.WriteLine(r.String()); err != nil {
		c.logger.Debug().Err(err).Msg("write failed")
		return false
	}
	return true
}

// handle executes one request line and returns its reply. quit is set
// when the client asked to close the connection.
func (c *connection) handle(ctx context.Context, line string) (reply Reply, quit bool) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return Nope(err.Error()), false
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return Nope(MsgSlowDown), false
	}
	c.logger.Debug().Str(xlog.FieldCommand, string(cmd.Verb)).Msg("command")

	switch cmd.Verb {
	case VerbUser:
		return c.handleUser(cmd.Args[0]), false
	case VerbLevl:
		return c.handleLevl(ctx, cmd.Args[0]), false
	case VerbWait:
		return c.handleWait(ctx), false
	case VerbGetW:
		return c.query((*session.Session).Width), false
	case VerbGetH:
		return c.query((*session.Session).Height), false
	case VerbGetX:
		return c.query((*session.Session).X), false
	case VerbGetY:
		return c.query((*session.Session).Y), false
	case VerbWhat:
		return c.query(func(s *session.Session) (int, error) { return s.What(cmd.X, cmd.Y) }), false
	case VerbMaze:
		return c.handleMaze(), false
	case VerbMove:
		return c.handleMove(cmd.Input), false
	case VerbQuit:
		return Done(), true
	}
	return Nope(ErrUnknownCommand.Error()), false
}

func (c *connection) handleUser(name string) Reply {
	if c.sess != nil {
		return Nope(MsgAlreadyInGame)
	}
	if len(name) > MaxUserLength {
		return Nope("user name too long")
	}
	c.user = name
	c.logger = c.logger.With().Str(xlog.FieldUser, name).Logger()
	return Done()
}

func (c *connection) handleLevl(ctx context.Context, code string) Reply {
	switch {
	case c.sess != nil:
		return Nope(MsgAlreadyInGame)
	case c.user == "":
		return Nope(MsgNoUser)
	}

	sess, err := c.driver.host.Open(ctx, code, c.user)
	switch {
	case err == nil:
		c.code = code
		c.bind(sess)
		return Done()
	case errors.Is(err, level.ErrUnknownLevel):
		c.code = ""
		return Nope(MsgUnknownLevel)
	case errors.Is(err, session.ErrLimit):
		c.code = code
		return Nope(MsgLevelFull)
	case errors.Is(err, session.ErrAllocation):
		c.code = code
		return Nope(MsgLevelFailed)
	case errors.Is(err, session.ErrHostClosed):
		return Over(MsgShuttingDown)
	}
	c.logger.Warn().Err(err).Str(xlog.FieldLevel, code).Msg("session admission failed")
	return Nope(err.Error())
}

func (c *connection) handleWait(ctx context.Context) Reply {
	switch {
	case c.sess != nil:
		return Done()
	case c.code == "":
		return Nope(MsgNoLevel)
	}

	sess, err := c.driver.host.Wait(ctx, c.code, c.user)
	switch {
	case err == nil:
		c.bind(sess)
		return Done()
	case errors.Is(err, session.ErrAllocation):
		return Nope(MsgLevelFailed)
	case errors.Is(err, session.ErrHostClosed), ctx.Err() != nil:
		return Over(MsgShuttingDown)
	}
	return Nope(err.Error())
}

func (c *connection) bind(sess *session.Session) {
	c.sess = sess
	c.logger = c.logger.With().
		Str(xlog.FieldSessionID, sess.ID()).
		Str(xlog.FieldLevel, sess.Level().Code).
		Logger()
}

func (c *connection) query(fn func(*session.Session) (int, error)) Reply {
	if c.sess == nil {
		return c.notPlaying()
	}
	v, err := fn(c.sess)
	if err != nil {
		return c.failure(err)
	}
	return Data(v)
}

func (c *connection) handleMaze() Reply {
	if c.sess == nil {
		return c.notPlaying()
	}
	w, err := c.sess.Width()
	if err != nil {
		return c.failure(err)
	}
	h, err := c.sess.Height()
	if err != nil {
		return c.failure(err)
	}
	if w < 0 || h < 0 || w > MaxMazeCells || h > MaxMazeCells || w*h > MaxMazeCells {
		return Nope(MsgMazeTooLarge)
	}

	cells := make([]int, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v, err := c.sess.What(x, y)
			if err != nil {
				return c.failure(err)
			}
			cells = append(cells, v)
		}
	}
	return Data(cells...)
}

func (c *connection) handleMove(input rune) Reply {
	if c.sess == nil {
		return c.notPlaying()
	}
	res, err := c.sess.Move(input)
	if err != nil {
		return c.failure(err)
	}
	switch {
	case res.Won:
		c.logger.Info().Msg("level won")
		return Over(res.Message)
	case res.Message == "":
		return Done()
	}
	return Nope(res.Message)
}

func (c *connection) notPlaying() Reply {
	if c.code != "" {
		return Nope(MsgNotAdmitted)
	}
	return Nope(MsgNoLevel)
}

// failure maps a session call error to its reply.
func (c *connection) failure(err error) Reply {
	var qf *level.QueryFailure
	switch {
	case errors.As(err, &qf):
		return Nope(qf.Error())
	case errors.Is(err, session.ErrNoProbe):
		return Nope(MsgNoProbe)
	case errors.Is(err, session.ErrTimedOut):
		return Over(MsgTimeUp)
	case errors.Is(err, session.ErrLevelFault):
		return Over(MsgLevelFault)
	case errors.Is(err, session.ErrSessionOver):
		return Over(c.endMessage())
	}
	return Nope(err.Error())
}
