package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/wricardo/mazed/game/level"
	"github.com/wricardo/mazed/game/service"
	"github.com/wricardo/mazed/game/session"
	"github.com/wricardo/mazed/transport/websocket"
)

// Server represents the admin HTTP server
type Server struct {
	service service.AdminService
	hub     *websocket.Hub
	play    http.Handler
	mcp     http.Handler
	logger  zerolog.Logger
	router  *mux.Router
}

// Option configures a Server
type Option func(*Server)

// WithHub mounts the event stream on /ws/events
func WithHub(hub *websocket.Hub) Option {
	return func(s *Server) { s.hub = hub }
}

// WithPlay mounts the websocket game endpoint on /ws
func WithPlay(h http.Handler) Option {
	return func(s *Server) { s.play = h }
}

// WithMCP mounts an MCP handler under /mcp
func WithMCP(h http.Handler) Option {
	return func(s *Server) { s.mcp = h }
}

// WithLogger sets the request logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new API server
func NewServer(adminService service.AdminService, opts ...Option) *Server {
	s := &Server{
		service: adminService,
		logger:  zerolog.Nop(),
		router:  mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Levels
	api.HandleFunc("/levels", s.handleListLevels).Methods("GET")
	api.HandleFunc("/levels/{code}", s.handleGetLevel).Methods("GET")

	// Sessions
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/history", s.handleListHistory).Methods("GET")

	// Operations
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// WebSocket
	if s.play != nil {
		s.router.Handle("/ws", s.play)
	}
	if s.hub != nil {
		s.router.HandleFunc("/ws/events", s.hub.ServeWS)
	}

	if s.mcp != nil {
		s.router.PathPrefix("/mcp").Handler(s.mcp)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondFailure maps service errors onto HTTP statuses
func respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, level.ErrUnknownLevel), errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Level Handlers

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.service.ListLevels(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(levels),
		"levels": levels,
	})
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	info, err := s.service.GetLevel(r.Context(), code)
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Session Handlers

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}
	s.respondSessions(w, r, sessions)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListHistory(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}
	s.respondSessions(w, r, sessions)
}

// respondSessions applies the level and limit query parameters
func (s *Server) respondSessions(w http.ResponseWriter, r *http.Request, sessions []*service.SessionInfo) {
	query := r.URL.Query()
	total := len(sessions)

	if code := query.Get("level"); code != "" {
		filtered := sessions[:0]
		for _, sess := range sessions {
			if sess.Level == code {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", limitStr))
			return
		}
		if l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.KickSession(r.Context(), sessionID); err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s disconnected", sessionID),
	})
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Health(r.Context()))
}
