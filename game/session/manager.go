package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/persistence"
)

const (
	// DefaultMaxIdle is how long an untouched session stays registered
	DefaultMaxIdle = 24 * time.Hour
	// DefaultSweepInterval is how often idle sessions are pruned
	DefaultSweepInterval = time.Hour
)

// Manager keeps the live controllers of a server. A profile has at most one
// controller per theme, since both would write the same saved adventure.
type Manager struct {
	sessions map[string]*Controller
	opts     Options
	mu       sync.RWMutex
}

// NewManager creates a manager whose controllers share opts
func NewManager(opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Controller),
		opts:     opts.withDefaults(),
	}
}

// Create registers a new idle controller for the profile behind records
func (m *Manager) Create(theme *engine.Theme, records *persistence.Manager) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findLocked(records.Profile(), theme.ID) != nil {
		return nil, ErrSessionAlreadyExists
	}
	return m.createLocked(theme, records), nil
}

// GetOrCreate returns the live controller of the profile for the theme,
// creating one when there is none. created reports which happened.
func (m *Manager) GetOrCreate(theme *engine.Theme, records *persistence.Manager) (c *Controller, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c := m.findLocked(records.Profile(), theme.ID); c != nil {
		return c, false
	}
	return m.createLocked(theme, records), true
}

func (m *Manager) createLocked(theme *engine.Theme, records *persistence.Manager) *Controller {
	id := m.generateSessionID()
	for m.sessions[id] != nil {
		id = m.generateSessionID()
	}
	c := NewController(id, theme, records, m.opts)
	m.sessions[id] = c
	log.Info().Str("session", id).Str("profile", records.Profile()).Str("theme", theme.ID).Msg("session created")
	return c
}

func (m *Manager) findLocked(profile, themeID string) *Controller {
	for _, c := range m.sessions {
		if c.Profile() == profile && c.ThemeID() == themeID {
			return c
		}
	}
	return nil
}

// Get retrieves a controller by ID (case-insensitive)
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.sessions[strings.ToLower(id)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// List returns the live controllers ordered by ID
func (m *Manager) List() []*Controller {
	m.mu.RLock()
	result := make([]*Controller, 0, len(m.sessions))
	for _, c := range m.sessions {
		result = append(result, c)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// Delete unregisters a controller and stops its background syncs. It does
// not touch the saved adventure.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[strings.ToLower(id)]
	if ok {
		delete(m.sessions, strings.ToLower(id))
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	c.Shutdown()
	return nil
}

// CleanupExpiredSessions saves and removes controllers idle longer than maxAge
func (m *Manager) CleanupExpiredSessions(ctx context.Context, maxAge time.Duration) int {
	cutoff := m.opts.Clock.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*Controller
	for id, c := range m.sessions {
		if c.LastAccess().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, c)
		}
	}
	m.mu.Unlock()

	for _, c := range expired {
		if c.State() != Idle {
			_, _ = c.Leave(ctx)
		}
		c.Shutdown()
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("pruned idle sessions")
	}
	return len(expired)
}

// Run prunes idle sessions every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpiredSessions(ctx, maxAge)
		}
	}
}

// Tick advances the timers of every live controller
func (m *Manager) Tick() {
	for _, c := range m.List() {
		_, _ = c.Tick()
	}
}

// Close saves every active adventure and stops all controllers
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range all {
		if c.State() != Idle {
			_, _ = c.Leave(ctx)
		}
		c.Shutdown()
	}
}

// Count returns the number of live controllers
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
