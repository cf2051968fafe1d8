// Package registry maps level codes to their descriptors.
//
// A Registry goes through two phases. During startup descriptors are added
// with Register. Seal then ends that phase: the registry becomes read-only
// and Resolve reads without taking any lock, so every session goroutine can
// resolve levels concurrently.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/wricardo/mazed/game/level"
)

// ErrSealed is returned by Register once the registry has been sealed.
var ErrSealed = errors.New("registry is sealed")

// Registry holds the level descriptors known to the process.
type Registry struct {
	mu     sync.Mutex
	levels map[string]level.Descriptor
	sealed atomic.Bool
}

// New creates an empty, unsealed registry.
func New() *Registry {
	return &Registry{levels: make(map[string]level.Descriptor)}
}

// Register adds a descriptor. It fails with *level.DuplicateCodeError if the
// code is already taken.
func (r *Registry) Register(d level.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return fmt.Errorf("register %q: %w", d.Code, ErrSealed)
	}
	if _, exists := r.levels[d.Code]; exists {
		return &level.DuplicateCodeError{Code: d.Code}
	}
	r.levels[d.Code] = d
	return nil
}

// MustRegister is like Register but panics on error. It is intended for
// built-in levels wired at startup.
func (r *Registry) MustRegister(d level.Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Seal makes the registry read-only. Sealing twice is a no-op.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed.Store(true)
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool { return r.sealed.Load() }

// Resolve returns the descriptor registered under code, or a
// *level.UnknownLevelError.
func (r *Registry) Resolve(code string) (level.Descriptor, error) {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	d, ok := r.levels[code]
	if !ok {
		return level.Descriptor{}, &level.UnknownLevelError{Code: code}
	}
	return d, nil
}

// Descriptors returns all registered descriptors sorted by code.
func (r *Registry) Descriptors() []level.Descriptor {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make([]level.Descriptor, 0, len(r.levels))
	for _, d := range r.levels {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of registered levels.
func (r *Registry) Len() int {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return len(r.levels)
}
