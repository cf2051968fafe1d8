// Package level defines the contract every maze level implements.
//
// A level is a pluggable game stage. The host never inspects a level's
// per-session data: Create hands back an opaque State, the host threads that
// State through Move and the read-only queries, and finally hands it back to
// Destroy exactly once.
//
// Core Types:
//
// Level is the contract. Prober is an optional extension for levels that can
// describe individual cells. MoveResult and QueryResult carry call outcomes
// as values. Descriptor binds a level code to an implementation and to the
// resource limits the host enforces around it.
//
// Ownership:
//
// A State belongs to exactly one session for that session's lifetime. The
// host serializes every call made with a given State, so levels need no
// internal locking. Queries must not mutate the State; only Move does.
//
// Usage:
//
//	desc := level.Descriptor{
//		Code:           "test",
//		MaxConnections: 2,
//		MaxDuration:    10 * time.Second,
//		Level:          levels.NewBlind(logger),
//	}
//
//	state, err := desc.Level.Create()
//	if err != nil {
//		return err
//	}
//	defer desc.Level.Destroy(state)
//
//	result := desc.Level.Move(state, 'x')
//	x, err := desc.Level.X(state).Get()
package level
