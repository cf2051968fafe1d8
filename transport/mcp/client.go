package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mazed/game/service"
)

// Client is a thin MCP client that proxies to the admin REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"mazed",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`mazed - MCP Interface

This is a thin client that proxies all requests to the mazed admin REST API.
mazed hosts maze levels played over a line protocol; these tools inspect and
control the running server. They do not play.

AVAILABLE TOOLS:
- list_levels: Registered levels with their connection and time limits
- get_level: One level by code
- list_sessions: Live sessions, optionally for one level
- get_session: A live or recorded session
- kick_session: Disconnect a live session
- list_history: Recently ended sessions
- health: Level and session counts
- protocol_help: The line protocol players speak`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Levels
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List registered levels with limits and live session counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_level",
		Description: "Get details of a level by code",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": map[string]interface{}{
					"type":        "string",
					"description": "Level code",
				},
			},
			Required: []string{"code"},
		},
	}, c.handleGetLevel)

	// Sessions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List live sessions, oldest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level": map[string]interface{}{
					"type":        "string",
					"description": "Only sessions of this level code (optional)",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get a live session, or its record once it ended",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "kick_session",
		Description: "Disconnect a live session; the player receives OVER disconnected",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to disconnect",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleKickSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_history",
		Description: "List ended sessions, most recent first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of sessions (optional)",
				},
			},
		},
	}, c.handleListHistory)

	// Operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "health",
		Description: "Report server health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleHealth)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "protocol_help",
		Description: "Describe the line protocol used by players",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleProtocolHelp)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Handler serves single JSON-RPC messages posted over HTTP
func (c *Client) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// Notifications have no response.
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

type sessionList struct {
	Count    int                   `json:"count"`
	Total    int                   `json:"total"`
	Sessions []service.SessionInfo `json:"sessions"`
}

// Tool handlers

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count  int                 `json:"count"`
		Levels []service.LevelInfo `json:"levels"`
	}

	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Levels (%d):\n\n", response.Count)
	for i := range response.Levels {
		l := &response.Levels[i]
		fmt.Fprintf(&b, "- %s (%s): %s, %s\n", l.Code, l.Name, formatOccupancy(l), formatDuration(l.MaxDuration))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var level service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels/"+url.PathEscape(code), nil, &level); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLevelInfo(&level)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/sessions"
	if code := request.GetString("level", ""); code != "" {
		path += "?level=" + url.QueryEscape(code)
	}

	var response sessionList
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Level: %s, User: %s, Moves: %d, Created: %s)\n",
			s.ID, s.Level, s.User, s.Moves, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleKickSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response map[string]string
	if err := c.apiCall(ctx, "DELETE", "/api/sessions/"+url.PathEscape(sessionID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response["message"]), nil
}

func (c *Client) handleListHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/history"
	if limit := request.GetInt("limit", 0); limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var response sessionList
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ended Sessions (%d of %d):\n\n", response.Count, response.Total)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Level: %s, User: %s, Status: %s, Moves: %d, Lasted: %.1fs)\n",
			s.ID, s.Level, s.User, s.Status, s.Moves, s.ElapsedSeconds)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health service.HealthInfo
	if err := c.apiCall(ctx, "GET", "/healthz", nil, &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Status: %s\nLevels: %d\nLive sessions: %d\n",
		health.Status, health.Levels, health.Sessions)), nil
}

func (c *Client) handleProtocolHelp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(protocolHelp), nil
}

const protocolHelp = `# mazed line protocol

Players connect over TCP (or a websocket at /ws, one line per message) and
send one command per line. Every command gets exactly one reply line.

## Commands

USER <name>    identify yourself (required first)
LEVL <code>    start a session on a level
WAIT           block until a slot on the selected level frees up
GETW / GETH    maze width / height
GETX / GETY    your position
WHAT <x> <y>   contents of a cell (0 open, 1 wall, 2 exit)
MAZE           the whole maze, row by row
MOVE <w|a|s|d> move up, left, down or right
QUIT           end the connection

## Replies

DONE           the command succeeded
DATA <n>...    the command returned values
NOPE <msg>     the command was refused; the session continues
OVER <msg>     the session ended (won, time is up, disconnected); the
               connection closes after this line

## Limits

Each level caps concurrent sessions ("NOPE level is full", then WAIT) and
may cap session duration ("OVER time is up").`

// Formatting helpers

func formatOccupancy(l *service.LevelInfo) string {
	if l.MaxConnections == 0 {
		return fmt.Sprintf("%d playing, unlimited", l.Active)
	}
	return fmt.Sprintf("%d/%d playing", l.Active, l.MaxConnections)
}

func formatDuration(seconds int) string {
	if seconds == 0 {
		return "no time limit"
	}
	return fmt.Sprintf("%ds per session", seconds)
}

func formatLevelInfo(l *service.LevelInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s\nName: %s\n", l.Code, l.Name)
	if l.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", l.Description)
	}
	fmt.Fprintf(&b, "Sessions: %s\nTime limit: %s\n", formatOccupancy(l), formatDuration(l.MaxDuration))
	if l.Probe {
		b.WriteString("Map: WHAT and MAZE supported\n")
	} else {
		b.WriteString("Map: none, play blind\n")
	}
	return b.String()
}

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nLevel: %s\nUser: %s\nStatus: %s\nMoves: %d\nCreated: %s\nElapsed: %.1fs\n",
		session.ID, session.Level, session.User, session.Status, session.Moves,
		session.CreatedAt.Format("2006-01-02 15:04:05"), session.ElapsedSeconds)
	if session.Deadline != nil {
		fmt.Fprintf(&b, "Deadline: %s\n", session.Deadline.Format("2006-01-02 15:04:05"))
	}
	if !session.Live {
		b.WriteString("(ended)\n")
	}
	return b.String()
}
