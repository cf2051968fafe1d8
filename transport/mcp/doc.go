// Package mcp provides a Model Context Protocol server for operating mazed.
//
// The server is a thin client: every tool proxies to the admin REST API
// (package api), so it can run in-process or against a remote mazed.
//
// MCP Tools:
//   - list_levels: Registered levels with limits and live counts
//   - get_level: One level by code
//   - list_sessions: Live sessions, optionally filtered by level
//   - get_session: A live or recorded session
//   - kick_session: Disconnect a live session
//   - list_history: Ended sessions, most recent first
//   - health: Level and session counts
//   - protocol_help: The player line protocol
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// Or mount Client.Handler on /mcp to accept JSON-RPC over HTTP POST.
package mcp
