// Package server is a small reference implementation of the identity
// service the game syncs progress to. It mints four-emoji codes, validates
// them and stores per-theme progress blobs.
package server

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/emoji-maze-quest/identity"
)

// MaxCreateAttempts bounds code generation when drawn codes collide
const MaxCreateAttempts = 8

// Server serves the identity API
type Server struct {
	r          *chi.Mux
	store      PlayerStore
	categories identity.Categories
	now        func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Server
type Option func(*Server)

// WithCategories replaces the default emoji catalogue
func WithCategories(c identity.Categories) Option {
	return func(s *Server) { s.categories = c }
}

// WithRand sets the random source codes are drawn from
func WithRand(rng *rand.Rand) Option {
	return func(s *Server) { s.rng = rng }
}

// WithClock sets the time source for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New constructs a Server and registers its routes
func New(store PlayerStore, opts ...Option) *Server {
	s := &Server{
		r:          chi.NewRouter(),
		store:      store,
		categories: DefaultCategories(),
		now:        time.Now,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(requestLogger)
	s.r.Use(jsonContentType)

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Post("/players", s.handleCreate)
		r.Post("/players/validate", s.handleValidate)
		r.Post("/players/{codeKey}/progress", s.handleProgress)
	})
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return s
}

// ServeHTTP makes Server an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.categories)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	for attempt := 1; attempt <= MaxCreateAttempts; attempt++ {
		code, emojis := s.drawCode()
		rec := &PlayerRecord{
			ID:        uuid.NewString(),
			Code:      code,
			Emojis:    emojis,
			Progress:  identity.Progress{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := s.store.Create(r.Context(), rec)
		if errors.Is(err, ErrCodeTaken) {
			log.Debug().Int("attempt", attempt).Str("code_key", identity.CodeKey(code)).Msg("Code collision")
			continue
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to create player")
			writeError(w, http.StatusInternalServerError, "could not create player")
			return
		}
		writeJSON(w, http.StatusCreated, identity.CreatedIdentity{Code: code, Emojis: emojis, PlayerID: rec.ID})
		return
	}

	log.Warn().Int("attempts", MaxCreateAttempts).Msg("Code space exhausted")
	writeError(w, http.StatusConflict, "could not allocate a unique code")
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code []string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := identity.ParseCode(req.Code)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.store.Get(r.Context(), identity.CodeKey(code))
	if errors.Is(err, ErrPlayerNotFound) {
		writeError(w, http.StatusNotFound, "code not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load player")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, identity.Player{
		Code:      p.Code,
		Progress:  p.Progress,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	code, err := identity.ParseCode(strings.Split(chi.URLParam(r, "codeKey"), "-"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req struct {
		Progress identity.Progress `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Progress == nil {
		writeError(w, http.StatusBadRequest, "progress object is required")
		return
	}

	updated, err := s.store.MergeProgress(r.Context(), identity.CodeKey(code), req.Progress, s.now())
	if errors.Is(err, ErrPlayerNotFound) {
		writeError(w, http.StatusNotFound, "code not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to save progress")
		writeError(w, http.StatusInternalServerError, "could not save progress")
		return
	}
	writeJSON(w, http.StatusOK, identity.SyncResult{OK: true, UpdatedAt: updated})
}

// drawCode picks one item from every category
func (s *Server) drawCode() (code, emojis []string) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	for _, cat := range s.categories.Categories {
		item := cat[s.rng.Intn(len(cat))]
		code = append(code, item.Slug)
		emojis = append(emojis, item.Emoji)
	}
	return code, emojis
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("identity request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, identity.ErrorResponse{Error: msg})
}
