// Package session hosts the sessions of registered levels.
//
// The session package implements:
//   - Admission control with a per-level connection limit
//   - The session lifecycle and its level state
//   - Wall-clock time limits enforced by a watchdog
//   - Containment of misbehaving level code
//   - Lifecycle events and records of ended sessions
//
// Core Types:
//
// Host owns one admission gate per level code and every live Session. A
// Session binds one client to one level state created by the level's
// Create and destroyed by exactly one Destroy, whatever way the session
// ends.
//
// Lifecycle:
//
//	Uncreated -> Active -> Won | TimedOut | Disconnected | Failed
//
// An admission refused because the level is full reports LimitExceeded and
// never creates state. A level that panics while creating state fails the
// admission with an AllocationError; a panic during a move or query ends
// the session as Failed.
//
// Concurrency:
//
// Calls on one session are serialized. The watchdog, Kick and Shutdown take
// the same lock, so a state is never destroyed while a level call is
// running on it; teardown happens at the next call boundary. Different
// sessions proceed in parallel.
//
// Usage:
//
//	host := session.NewHost(reg, session.WithLogger(logger))
//	defer host.Shutdown()
//
//	sess, err := host.Open(ctx, "test", "alice")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sess.Close(session.Disconnected)
//
//	result, err := sess.Move('w')
package session
