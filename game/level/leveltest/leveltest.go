// Package leveltest provides instrumented level implementations for tests.
package leveltest

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/wricardo/mazed/game/level"
)

// ErrAllocation is returned by Create when a Counting level is set to fail.
var ErrAllocation = errors.New("leveltest: allocation refused")

// Counting is a level that records every lifecycle call. Each state is a
// *Cursor; moves advance it and a move equal to WinOn wins.
type Counting struct {
	WinOn      rune // input that wins; 0 never wins
	FailAlloc  bool // Create returns ErrAllocation
	PanicAlloc bool // Create panics
	PanicOn    rune // input that makes Move panic; 0 never panics

	// MoveHook runs inside Move before the result is computed.
	MoveHook func()

	created   atomic.Int64
	destroyed atomic.Int64
	moves     atomic.Int64

	mu       sync.Mutex
	live     map[*Cursor]bool
	doubleRm int
	afterWin int
}

// Cursor is the per-session state of a Counting level.
type Cursor struct {
	Moves int
	Won   bool
}

func (c *Counting) Create() (level.State, error) {
	if c.FailAlloc {
		return nil, ErrAllocation
	}
	if c.PanicAlloc {
		panic("leveltest: create panic")
	}
	cur := &Cursor{}
	c.mu.Lock()
	if c.live == nil {
		c.live = make(map[*Cursor]bool)
	}
	c.live[cur] = true
	c.mu.Unlock()
	c.created.Add(1)
	return cur, nil
}

func (c *Counting) Destroy(s level.State) {
	cur := s.(*Cursor)
	c.mu.Lock()
	if !c.live[cur] {
		c.doubleRm++
	}
	delete(c.live, cur)
	c.mu.Unlock()
	c.destroyed.Add(1)
}

func (c *Counting) Move(s level.State, input rune) level.MoveResult {
	if c.MoveHook != nil {
		c.MoveHook()
	}
	if c.PanicOn != 0 && input == c.PanicOn {
		panic("leveltest: move panic")
	}
	cur := s.(*Cursor)
	c.moves.Add(1)
	if cur.Won {
		c.mu.Lock()
		c.afterWin++
		c.mu.Unlock()
	}
	cur.Moves++
	if c.WinOn != 0 && input == c.WinOn {
		cur.Won = true
		return level.MoveResult{Message: "you win", Won: true}
	}
	return level.MoveResult{Message: "moved"}
}

func (c *Counting) X(s level.State) level.QueryResult { return level.Value(s.(*Cursor).Moves) }
func (c *Counting) Y(level.State) level.QueryResult   { return level.Value(0) }
func (c *Counting) Width(level.State) level.QueryResult {
	return level.Failure("no width")
}
func (c *Counting) Height(level.State) level.QueryResult { return level.Value(0) }

// Created returns the number of successful Create calls.
func (c *Counting) Created() int64 { return c.created.Load() }

// Destroyed returns the number of Destroy calls.
func (c *Counting) Destroyed() int64 { return c.destroyed.Load() }

// Moves returns the number of Move calls that reached the state.
func (c *Counting) Moves() int64 { return c.moves.Load() }

// Live returns the number of states created but not yet destroyed.
func (c *Counting) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// DoubleDestroys returns the number of Destroy calls on states that were not
// live.
func (c *Counting) DoubleDestroys() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doubleRm
}

// MovesAfterWin returns the number of Move calls on an already won state.
func (c *Counting) MovesAfterWin() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.afterWin
}
