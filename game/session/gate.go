package session

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/wricardo/mazed/game/level"
)

// gate is the admission control of one level code.
type gate struct {
	code   string
	max    int
	sem    *semaphore.Weighted // nil when unlimited
	active atomic.Int64
}

func newGate(d level.Descriptor) *gate {
	g := &gate{code: d.Code, max: d.MaxConnections}
	if !d.Unlimited() {
		g.sem = semaphore.NewWeighted(int64(d.MaxConnections))
	}
	return g
}

// tryAcquire takes a slot without blocking.
func (g *gate) tryAcquire() bool {
	if g.sem != nil && !g.sem.TryAcquire(1) {
		return false
	}
	g.active.Add(1)
	return true
}

// acquire blocks until a slot is free or ctx ends.
func (g *gate) acquire(ctx context.Context) error {
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	g.active.Add(1)
	return nil
}

func (g *gate) release() {
	g.active.Add(-1)
	if g.sem != nil {
		g.sem.Release(1)
	}
}

func (g *gate) count() int { return int(g.active.Load()) }
