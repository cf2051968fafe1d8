package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wricardo/mazed/game/level"
	"github.com/wricardo/mazed/game/registry"
	xlog "github.com/wricardo/mazed/internal/log"
	"github.com/wricardo/mazed/internal/metrics"
)

// Host admits sessions into registered levels and enforces their
// connection and time limits.
type Host struct {
	reg       *registry.Registry
	logger    zerolog.Logger
	clock     Clock
	observers []Observer
	recorder  Recorder

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	mu       sync.RWMutex
	gates    map[string]*gate
	sessions map[uuid.UUID]*Session
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Host) { h.logger = logger }
}

// WithObserver adds a lifecycle event observer.
func WithObserver(o Observer) Option {
	return func(h *Host) { h.observers = append(h.observers, o) }
}

// WithClock replaces the wall clock used for deadlines and watchdogs.
func WithClock(c Clock) Option {
	return func(h *Host) { h.clock = c }
}

// WithRecorder stores a record of every ended session in r.
func WithRecorder(r Recorder) Option {
	return func(h *Host) { h.recorder = r }
}

// Recorder returns the configured session recorder, or nil.
func (h *Host) Recorder() Recorder { return h.recorder }

// NewHost creates a host serving the levels of reg, with one admission gate
// per registered descriptor.
func NewHost(reg *registry.Registry, opts ...Option) *Host {
	h := &Host{
		reg:      reg,
		logger:   zerolog.Nop(),
		clock:    realClock{},
		gates:    make(map[string]*gate),
		sessions: make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())

	for _, d := range reg.Descriptors() {
		h.gates[d.Code] = newGate(d)
	}
	return h
}

// Open admits a new session into level code without waiting. A full level
// fails with *LimitError.
func (h *Host) Open(ctx context.Context, code, user string) (*Session, error) {
	return h.open(ctx, code, user, false)
}

// Wait is like Open but blocks until a slot of the level is free, ctx ends
// or the host shuts down.
func (h *Host) Wait(ctx context.Context, code, user string) (*Session, error) {
	return h.open(ctx, code, user, true)
}

func (h *Host) open(ctx context.Context, code, user string, wait bool) (*Session, error) {
	if h.closed.Load() {
		return nil, ErrHostClosed
	}

	d, err := h.reg.Resolve(code)
	if err != nil {
		metrics.RecordReject("", metrics.ReasonUnknown)
		return nil, err
	}
	g := h.gate(d)

	if wait {
		ctx, cancel := context.WithCancel(ctx)
		stop := context.AfterFunc(h.ctx, cancel)
		err := g.acquire(ctx)
		stop()
		cancel()
		if err != nil {
			if h.closed.Load() {
				return nil, ErrHostClosed
			}
			return nil, err
		}
	} else if !g.tryAcquire() {
		metrics.RecordReject(d.Code, metrics.ReasonLimit)
		lerr := &LimitError{Code: d.Code, Max: d.MaxConnections}
		h.emit(Event{Type: EventRejected, Level: d.Code, User: user, Status: LimitExceeded, Message: lerr.Error()})
		h.logger.Info().
			Str(xlog.FieldLevel, d.Code).
			Str(xlog.FieldUser, user).
			Int("max_connections", d.MaxConnections).
			Msg("session refused, level is full")
		return nil, lerr
	}

	var state level.State
	var createErr error
	if err := guard(func() { state, createErr = d.Level.Create() }); err != nil {
		createErr = err
	}
	if createErr != nil {
		g.release()
		metrics.RecordReject(d.Code, metrics.ReasonAllocation)
		aerr := &AllocationError{Code: d.Code, Err: createErr}
		h.emit(Event{Type: EventRejected, Level: d.Code, User: user, Status: Uncreated, Message: aerr.Error()})
		h.logger.Warn().Err(createErr).Str(xlog.FieldLevel, d.Code).Str(xlog.FieldUser, user).Msg("level state allocation failed")
		return nil, aerr
	}

	s := newSession(h, g, d, user, state)
	metrics.RecordAdmit(d.Code)

	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		s.Close(Disconnected)
		return nil, ErrHostClosed
	}
	h.sessions[s.id] = s
	h.mu.Unlock()

	if d.Bounded() {
		s.mu.Lock()
		if !s.Status().Terminal() {
			s.timer = h.clock.AfterFunc(d.MaxDuration, s.expire)
		}
		s.mu.Unlock()
	}

	h.emit(Event{Type: EventCreated, SessionID: s.ID(), Level: d.Code, User: user, Status: Active})
	s.logger.Info().Msg("session created")
	return s, nil
}

func (h *Host) gate(d level.Descriptor) *gate {
	h.mu.RLock()
	g, ok := h.gates[d.Code]
	h.mu.RUnlock()
	if ok {
		return g
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if g, ok = h.gates[d.Code]; !ok {
		g = newGate(d)
		h.gates[d.Code] = g
	}
	return g
}

// Active returns the number of live sessions of level code.
func (h *Host) Active(code string) int {
	h.mu.RLock()
	g, ok := h.gates[code]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	return g.count()
}

// Session returns the live session with the given ID.
func (h *Host) Session(id string) (*Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[uid]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Sessions returns all live sessions, oldest first.
func (h *Host) Sessions() []*Session {
	h.mu.RLock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].created.Before(out[j].created) })
	return out
}

// Kick disconnects the session with the given ID. The level state is
// destroyed once any in-flight call on the session returns.
func (h *Host) Kick(id string) error {
	s, err := h.Session(id)
	if err != nil {
		return err
	}
	s.Close(Disconnected)
	return nil
}

// Shutdown refuses new sessions, wakes waiting admissions and disconnects
// every live session.
func (h *Host) Shutdown() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.cancel()

	h.mu.RLock()
	live := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		live = append(live, s)
	}
	h.mu.RUnlock()

	for _, s := range live {
		s.Close(Disconnected)
	}
	h.logger.Info().Int("sessions", len(live)).Msg("session host shut down")
}

// remove is called exactly once per admitted session, after its state has
// been destroyed.
func (h *Host) remove(s *Session, status Status) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	s.gate.release()

	info := s.Info()
	metrics.RecordEnd(s.desc.Code, status.String(), info.Elapsed)
	if h.recorder != nil {
		if err := h.recorder.Save(info); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record ended session")
		}
	}
	h.emit(Event{Type: EventEnded, SessionID: s.ID(), Level: s.desc.Code, User: s.user, Status: status})
	s.logger.Info().
		Str(xlog.FieldStatus, status.String()).
		Dur(xlog.FieldDuration, info.Elapsed).
		Int64("moves", info.Moves).
		Msg("session ended")
}

func (h *Host) emit(e Event) {
	if len(h.observers) == 0 {
		return
	}
	if e.Time.IsZero() {
		e.Time = h.clock.Now()
	}
	for _, o := range h.observers {
		o(e)
	}
}
