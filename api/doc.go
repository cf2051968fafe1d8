// Package api provides the admin HTTP surface of mazed.
//
// Endpoints:
//
// Levels:
//   - GET /api/levels - List registered levels with their limits and live session counts
//   - GET /api/levels/{code} - Get one level
//
// Sessions:
//   - GET /api/sessions - List live sessions, oldest first
//   - GET /api/sessions/{id} - Get a live session, or its record once it ended
//   - DELETE /api/sessions/{id} - Disconnect a live session
//   - GET /api/history - List recorded sessions, newest first
//
// Session lists accept ?level=<code> and ?limit=<n>.
//
// Operations:
//   - GET /healthz - Level and session counts
//   - GET /metrics - Prometheus metrics
//
// Optional mounts, enabled through Options:
//   - /ws - Play over websocket (WithPlay)
//   - /ws/events - Session lifecycle events (WithHub)
//   - /mcp - MCP over streamable HTTP (WithMCP)
//
// Errors are returned as {"error": "..."} with 404 for unknown levels and
// sessions.
package api
