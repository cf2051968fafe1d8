// Package client is a Go client for the mazed line protocol.
//
//	c, err := client.Dial(ctx, "localhost:4000", client.Options{User: "alice", Level: "intro"})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	sol, err := client.Solve(ctx, c)
//
// Dial performs the USER, LEVL and optional WAIT handshake and caches the
// maze size. NOPE and OVER replies are returned as *ServerError; after an
// OVER every call fails with that same error.
package client
