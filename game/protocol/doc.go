// Package protocol implements the mazed line protocol.
//
// A client sends one command per line and receives exactly one reply line
// per command:
//
//	USER <name>    DONE | NOPE <why>
//	LEVL <code>    DONE | NOPE <why>
//	WAIT           DONE once admitted
//	GETW GETH      DATA <n> | NOPE <why>
//	GETX GETY      DATA <n> | NOPE <why>
//	WHAT <x> <y>   DATA <n> | NOPE <why>
//	MAZE           DATA <n> <n> ... (row-major, width*height cells)
//	MOVE <c>       DONE | NOPE <message> | OVER <message>
//	QUIT           DONE
//
// OVER is terminal: it is sent when the player wins and when the session
// ends on its own (time limit, disconnection by an operator, level fault),
// after which the server closes the connection.
//
// A LEVL refused because the level is full keeps the level selected, so a
// following WAIT blocks until a slot frees up.
//
// Driver runs the protocol for one connection on top of a session.Host.
// Transports supply a Conn: NewStreamConn adapts any net.Conn.
package protocol
