package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wricardo/mazed/game/level"
	xlog "github.com/wricardo/mazed/internal/log"
	"github.com/wricardo/mazed/internal/metrics"
)

// Session binds one client to one level state. Calls on a session are
// serialized; teardown only happens between calls.
type Session struct {
	id       uuid.UUID
	user     string
	desc     level.Descriptor
	host     *Host
	gate     *gate
	logger   zerolog.Logger
	created  time.Time
	deadline time.Time

	mu    sync.Mutex
	state level.State
	timer Timer

	status  atomic.Int32
	ended   atomic.Int64 // unix nanoseconds, 0 while live
	moves   atomic.Int64
	endOnce sync.Once
	done    chan struct{}
}

// Info is a point-in-time snapshot of a session.
type Info struct {
	ID       string        `json:"id"`
	Level    string        `json:"level"`
	User     string        `json:"user"`
	Status   Status        `json:"status"`
	Created  time.Time     `json:"created"`
	Deadline time.Time     `json:"deadline,omitzero"`
	Moves    int64         `json:"moves"`
	Elapsed  time.Duration `json:"elapsed"`
}

func newSession(h *Host, g *gate, d level.Descriptor, user string, state level.State) *Session {
	s := &Session{
		id:      uuid.New(),
		user:    user,
		desc:    d,
		host:    h,
		gate:    g,
		created: h.clock.Now(),
		state:   state,
		done:    make(chan struct{}),
	}
	if d.Bounded() {
		s.deadline = s.created.Add(d.MaxDuration)
	}
	s.status.Store(int32(Active))
	s.logger = h.logger.With().
		Str(xlog.FieldSessionID, s.id.String()).
		Str(xlog.FieldLevel, d.Code).
		Str(xlog.FieldUser, user).
		Logger()
	return s
}

func (s *Session) ID() string { return s.id.String() }

func (s *Session) User() string { return s.user }

// Level returns the descriptor the session is bound to.
func (s *Session) Level() level.Descriptor { return s.desc }

func (s *Session) Status() Status { return Status(s.status.Load()) }

// Done is closed once the session reaches a terminal status.
func (s *Session) Done() <-chan struct{} { return s.done }

// Deadline returns the time limit of the session; ok is false when the level
// has none.
func (s *Session) Deadline() (deadline time.Time, ok bool) {
	return s.deadline, !s.deadline.IsZero()
}

func (s *Session) Info() Info {
	info := Info{
		ID:       s.ID(),
		Level:    s.desc.Code,
		User:     s.user,
		Status:   s.Status(),
		Created:  s.created,
		Deadline: s.deadline,
		Moves:    s.moves.Load(),
	}
	end := s.host.clock.Now()
	if ns := s.ended.Load(); ns != 0 {
		end = time.Unix(0, ns)
	}
	info.Elapsed = end.Sub(s.created)
	return info
}

// Move forwards one input to the level. After a winning move the session is
// over and its state destroyed.
func (s *Session) Move(input rune) (level.MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return level.MoveResult{}, err
	}

	var res level.MoveResult
	if err := guard(func() { res = s.desc.Level.Move(s.state, input) }); err != nil {
		s.logger.Error().Err(err).Msg("level panicked in move")
		s.endLocked(Failed)
		return level.MoveResult{}, err
	}
	s.moves.Add(1)
	metrics.RecordMove(s.desc.Code)

	if res.Won {
		s.endLocked(Won)
	}
	return res, nil
}

func (s *Session) X() (int, error) { return s.query(s.desc.Level.X) }

func (s *Session) Y() (int, error) { return s.query(s.desc.Level.Y) }

func (s *Session) Width() (int, error) { return s.query(s.desc.Level.Width) }

func (s *Session) Height() (int, error) { return s.query(s.desc.Level.Height) }

// What probes cell (x, y). On a live session it fails with ErrNoProbe if the
// level does not implement level.Prober.
func (s *Session) What(x, y int) (int, error) {
	p, ok := s.desc.Level.(level.Prober)
	if !ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.checkLocked(); err != nil {
			return 0, err
		}
		return 0, ErrNoProbe
	}
	return s.query(func(st level.State) level.QueryResult { return p.What(st, x, y) })
}

func (s *Session) query(fn func(level.State) level.QueryResult) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return 0, err
	}

	var res level.QueryResult
	if err := guard(func() { res = fn(s.state) }); err != nil {
		s.logger.Error().Err(err).Msg("level panicked in query")
		s.endLocked(Failed)
		return 0, err
	}
	return res.Get()
}

// Close ends the session with reason, which must be terminal; anything else
// is treated as Disconnected. Closing an ended session is a no-op.
func (s *Session) Close(reason Status) {
	if !reason.Terminal() {
		reason = Disconnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked(reason)
}

// expire is the duration watchdog.
func (s *Session) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked(TimedOut)
}

func (s *Session) checkLocked() error {
	switch st := s.Status(); {
	case st == TimedOut:
		return ErrTimedOut
	case st.Terminal():
		return ErrSessionOver
	}
	if !s.deadline.IsZero() && !s.host.clock.Now().Before(s.deadline) {
		s.endLocked(TimedOut)
		return ErrTimedOut
	}
	return nil
}

// endLocked moves the session into a terminal status and destroys its
// state. Only the first call has any effect.
func (s *Session) endLocked(status Status) {
	s.endOnce.Do(func() {
		s.status.Store(int32(status))
		if s.timer != nil {
			s.timer.Stop()
		}

		state := s.state
		s.state = nil
		if err := guard(func() { s.desc.Level.Destroy(state) }); err != nil {
			s.logger.Error().Err(err).Msg("level panicked in destroy")
		}

		s.ended.Store(s.host.clock.Now().UnixNano())
		s.host.remove(s, status)
		close(s.done)
	})
}
