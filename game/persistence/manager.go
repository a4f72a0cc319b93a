package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/emoji-maze-quest/game/engine"
)

// IdentityRecord is the locally remembered identity code of a profile
type IdentityRecord struct {
	Code    []string  `json:"code"`
	Emojis  []string  `json:"emojis,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Manager reads and writes the three records of one profile: the adventure
// per theme, lifetime stats and the identity code. The records are
// independent; a corrupt one never affects the others.
type Manager struct {
	store   Store
	profile string
	now     func() time.Time
}

// NewManager creates a manager for profile on top of store
func NewManager(store Store, profile string) (*Manager, error) {
	if err := ValidateKey(profile); err != nil || strings.Contains(profile, "/") {
		return nil, fmt.Errorf("%w: profile %q", ErrInvalidKey, profile)
	}
	return &Manager{store: store, profile: profile, now: time.Now}, nil
}

// Profile returns the profile name the manager is scoped to
func (m *Manager) Profile() string {
	return m.profile
}

// LoadSession returns the durable adventure for a theme. A record that fails
// to decode or validate is reported as ErrCorrupt.
func (m *Manager) LoadSession(ctx context.Context, themeID string) (*engine.GameState, error) {
	data, err := m.store.Get(ctx, SessionKey(m.profile, themeID))
	if err != nil {
		return nil, err
	}
	gs, err := engine.UnmarshalGameState(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if gs.ThemeID != themeID {
		return nil, fmt.Errorf("%w: record for %q holds theme %q", ErrCorrupt, themeID, gs.ThemeID)
	}
	return gs, nil
}

// SaveSession replaces the durable adventure for the state's theme
func (m *Manager) SaveSession(ctx context.Context, gs *engine.GameState) error {
	if gs == nil || gs.ThemeID == "" {
		return fmt.Errorf("cannot save a state without a theme")
	}
	data, err := gs.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}
	if err := m.store.Put(ctx, SessionKey(m.profile, gs.ThemeID), data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// ClearSession removes the durable adventure for a theme
func (m *Manager) ClearSession(ctx context.Context, themeID string) error {
	return m.store.Delete(ctx, SessionKey(m.profile, themeID))
}

// ListSessions returns the theme IDs with a stored adventure
func (m *Manager) ListSessions(ctx context.Context) ([]string, error) {
	prefix := SessionKey(m.profile, "")
	keys, err := m.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	themes := make([]string, 0, len(keys))
	for _, k := range keys {
		themes = append(themes, strings.TrimPrefix(k, prefix))
	}
	return themes, nil
}

// LoadStats returns lifetime stats. A missing record is zero stats.
func (m *Manager) LoadStats(ctx context.Context) (engine.LifetimeStats, error) {
	data, err := m.store.Get(ctx, StatsKey(m.profile))
	if errors.Is(err, ErrNotFound) {
		return engine.LifetimeStats{}, nil
	}
	if err != nil {
		return engine.LifetimeStats{}, err
	}
	var stats engine.LifetimeStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return engine.LifetimeStats{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return stats, nil
}

// RecordWin adds one completed maze and friendsSaved rescued friends to the
// lifetime stats in a single read-modify-write
func (m *Manager) RecordWin(ctx context.Context, friendsSaved int) (engine.LifetimeStats, error) {
	var stats engine.LifetimeStats
	err := m.store.Update(ctx, StatsKey(m.profile), func(current []byte) ([]byte, error) {
		stats = engine.LifetimeStats{}
		if current != nil {
			if err := json.Unmarshal(current, &stats); err != nil {
				log.Warn().Err(err).Str("profile", m.profile).Msg("Resetting corrupt stats record")
				stats = engine.LifetimeStats{}
			}
		}
		stats.MazesCompleted++
		stats.FriendsSaved += friendsSaved
		return json.Marshal(stats)
	})
	if err != nil {
		return engine.LifetimeStats{}, fmt.Errorf("failed to record win: %w", err)
	}
	return stats, nil
}

// LoadIdentity returns the remembered identity or ErrNotFound
func (m *Manager) LoadIdentity(ctx context.Context) (*IdentityRecord, error) {
	data, err := m.store.Get(ctx, IdentityKey(m.profile))
	if err != nil {
		return nil, err
	}
	var rec IdentityRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(rec.Code) != 4 {
		return nil, fmt.Errorf("%w: identity code has %d slugs", ErrCorrupt, len(rec.Code))
	}
	return &rec, nil
}

// SaveIdentity remembers an identity code for the profile
func (m *Manager) SaveIdentity(ctx context.Context, code, emojis []string) error {
	rec := IdentityRecord{Code: code, Emojis: emojis, SavedAt: m.now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	return m.store.Put(ctx, IdentityKey(m.profile), data)
}

// ClearIdentity forgets the profile's identity code
func (m *Manager) ClearIdentity(ctx context.Context) error {
	return m.store.Delete(ctx, IdentityKey(m.profile))
}
