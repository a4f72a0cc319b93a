package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/emoji-maze-quest/game/service"
	"github.com/wricardo/emoji-maze-quest/game/session"
	"github.com/wricardo/emoji-maze-quest/identity"
	"github.com/wricardo/emoji-maze-quest/transport/websocket"
)

// Error codes returned in the error envelope
const (
	CodeInvalidCode        = "invalid_code"
	CodeCodeNotFound       = "code_not_found"
	CodeServiceUnavailable = "service_unavailable"
	CodeCreationFailed     = "creation_failed"
	CodeInvalidTransition  = "invalid_transition"
	CodeTooSoon            = "too_soon"
	CodeInvalidRequest     = "invalid_request"
	CodeSessionNotFound    = "session_not_found"
	CodeThemeNotFound      = "theme_not_found"
	CodeInternal           = "internal"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil when no WebSocket
// clients are served.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Themes
	api.HandleFunc("/themes", s.handleListThemes).Methods("GET")
	api.HandleFunc("/themes/{id}", s.handleGetTheme).Methods("GET")

	// Profiles and identity
	api.HandleFunc("/profiles/{profile}/bootstrap", s.handleBootstrap).Methods("GET")
	api.HandleFunc("/profiles/{profile}/identity", s.handleCreateIdentity).Methods("POST")
	api.HandleFunc("/profiles/{profile}/identity", s.handleForgetIdentity).Methods("DELETE")
	api.HandleFunc("/profiles/{profile}/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/profiles/{profile}/stats", s.handleGetStats).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleLeaveSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/answer", s.handleAnswer).Methods("POST")
	api.HandleFunc("/sessions/{id}/action", s.handleAction).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Mount registers an extra handler, such as the MCP endpoint, at path
func (s *Server) Mount(path string, h http.Handler) {
	s.router.Handle(path, h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorBody is the JSON shape of every failed request
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable code and a human readable message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// respondErr maps a service error onto its HTTP status and code
func respondErr(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Warn().Err(err).Int("status", status).Msg("request failed")
	}
	respondError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	var ie *identity.Error
	if errors.As(err, &ie) {
		switch ie.Kind {
		case identity.KindValidation:
			return http.StatusBadRequest, CodeInvalidCode
		case identity.KindNotFound:
			return http.StatusNotFound, CodeCodeNotFound
		case identity.KindCreationFailure:
			return http.StatusBadGateway, CodeCreationFailed
		default:
			return http.StatusServiceUnavailable, CodeServiceUnavailable
		}
	}

	switch {
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	case errors.Is(err, session.ErrMoveTooSoon), errors.Is(err, session.ErrInputLocked):
		return http.StatusTooManyRequests, CodeTooSoon
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrUnknownAction),
		errors.Is(err, service.ErrInvalidProfile):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, service.ErrThemeNotFound):
		return http.StatusNotFound, CodeThemeNotFound
	}
	return http.StatusInternalServerError, CodeInternal
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
		return false
	}
	return true
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Theme Handlers

func (s *Server) handleListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := s.service.ListThemes(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, themes)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.service.GetTheme(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, theme)
}

// Profile Handlers

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.Bootstrap(r.Context(), mux.Vars(r)["profile"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateIdentity(w http.ResponseWriter, r *http.Request) {
	ident, err := s.service.CreateIdentity(r.Context(), mux.Vars(r)["profile"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ident)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code []string `json:"code"`
	}
	if !decode(w, r, &req) {
		return
	}

	ident, err := s.service.Login(r.Context(), mux.Vars(r)["profile"], req.Code)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ident)
}

func (s *Server) handleForgetIdentity(w http.ResponseWriter, r *http.Request) {
	profile := mux.Vars(r)["profile"]
	if err := s.service.ForgetIdentity(r.Context(), profile); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Identity of %s forgotten", profile),
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.GetStats(r.Context(), mux.Vars(r)["profile"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if !decode(w, r, &req) {
		return
	}

	view, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}

	log.Info().Str("session", view.SessionID).Str("profile", view.Profile).Str("theme", view.ThemeID).
		Str("state", string(view.State)).Msg("session opened")
	respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	total := len(sessions)

	// Parse query parameters
	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	// Set defaults
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	// Apply limit if specified
	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleLeaveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	view, err := s.service.LeaveSession(r.Context(), sessionID)
	if err != nil {
		respondErr(w, err)
		return
	}

	log.Info().Str("session", sessionID).Msg("session left")
	respondJSON(w, http.StatusOK, view)
}

// Game Operation Handlers

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Direction string `json:"direction"`
	}
	if !decode(w, r, &req) {
		return
	}

	view, err := s.service.Move(r.Context(), sessionID, req.Direction)
	if err != nil {
		respondErr(w, err)
		return
	}

	// Compact server log for observability
	ev := log.Debug().Str("session", sessionID).Str("dir", req.Direction).
		Str("outcome", string(view.Outcome)).Str("state", string(view.State))
	if view.Game != nil {
		ev = ev.Int("x", view.Game.PlayerPos.X).Int("y", view.Game.PlayerPos.Y)
	}
	ev.Msg("move")

	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Correct *bool `json:"correct"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Correct == nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "correct is required")
		return
	}

	view, err := s.service.Answer(r.Context(), mux.Vars(r)["id"], *req.Correct)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if !decode(w, r, &req) {
		return
	}

	view, err := s.service.Action(r.Context(), mux.Vars(r)["id"], req.Action)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "session parameter required")
		return
	}
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "WebSocket updates are disabled")
		return
	}

	// Verify session exists
	view, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondErr(w, err)
		return
	}

	s.hub.ServeWS(w, r, view.SessionID, view)
}
