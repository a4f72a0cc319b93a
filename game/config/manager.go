package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/service"
)

var (
	ErrThemeNotFound = errors.New("theme not found")
	ErrInvalidTheme  = errors.New("invalid theme")
)

// DefaultThemeID is loaded as the default theme when present
const DefaultThemeID = "meadow"

// Manager handles theme loading and caching
type Manager struct {
	themesDir    string
	defaultTheme *engine.Theme
	themes       map[string]*engine.Theme
	mu           sync.RWMutex
}

// NewManager creates a theme manager reading JSON files from themesDir
func NewManager(themesDir string) (*Manager, error) {
	if _, err := os.Stat(themesDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("themes directory does not exist: %s", themesDir)
	}

	m := &Manager{
		themesDir: themesDir,
		themes:    make(map[string]*engine.Theme),
	}
	m.loadDefaultTheme()
	return m, nil
}

// LoadTheme loads a theme by ID
func (m *Manager) LoadTheme(id string) (*engine.Theme, error) {
	id = strings.TrimSuffix(id, ".json")

	m.mu.RLock()
	if theme, ok := m.themes[id]; ok {
		m.mu.RUnlock()
		return theme, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id)
}

func (m *Manager) loadLocked(id string) (*engine.Theme, error) {
	if theme, ok := m.themes[id]; ok {
		return theme, nil
	}
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, ErrThemeNotFound
	}

	data, err := os.ReadFile(filepath.Join(m.themesDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrThemeNotFound
		}
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}

	var theme engine.Theme
	if err := json.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidTheme, id, err)
	}
	if theme.ID == "" {
		theme.ID = id
	}
	if theme.ID != id {
		return nil, fmt.Errorf("%w: file %s.json declares id %q", ErrInvalidTheme, id, theme.ID)
	}
	if err := engine.ValidateTheme(&theme); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTheme, err)
	}

	m.themes[id] = &theme
	return &theme, nil
}

// ListThemes returns information about every valid theme in the directory.
// Invalid files are skipped with a warning.
func (m *Manager) ListThemes() ([]*service.ThemeInfo, error) {
	entries, err := os.ReadDir(m.themesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}

	var out []*service.ThemeInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		theme, err := m.LoadTheme(id)
		if err != nil {
			log.Warn().Err(err).Str("theme", id).Msg("Skipping invalid theme")
			continue
		}
		out = append(out, themeInfo(theme))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetDefault returns the default theme
func (m *Manager) GetDefault() *engine.Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultTheme
}

// SetDefault sets the default theme by ID
func (m *Manager) SetDefault(id string) error {
	theme, err := m.LoadTheme(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultTheme = theme
	return nil
}

// RefreshCache drops every cached theme so the next load rereads the files
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.themes = make(map[string]*engine.Theme)
	m.mu.Unlock()
	m.loadDefaultTheme()
}

// SaveTheme validates and writes a theme to the directory
func (m *Manager) SaveTheme(theme *engine.Theme) error {
	if err := engine.ValidateTheme(theme); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTheme, err)
	}
	data, err := json.MarshalIndent(theme, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal theme: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.themesDir, theme.ID+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}

	m.mu.Lock()
	m.themes[theme.ID] = theme
	m.mu.Unlock()
	return nil
}

// loadDefaultTheme picks meadow, then the first valid theme, then the
// built-in fallback
func (m *Manager) loadDefaultTheme() {
	theme, err := m.LoadTheme(DefaultThemeID)
	if err != nil {
		infos, listErr := m.ListThemes()
		if listErr == nil && len(infos) > 0 {
			theme, err = m.LoadTheme(infos[0].ID)
		}
	}
	if err != nil || theme == nil {
		log.Warn().Str("dir", m.themesDir).Msg("No valid themes found, using built-in theme")
		theme = engine.DefaultTheme()
		m.mu.Lock()
		m.themes[theme.ID] = theme
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.defaultTheme = theme
	m.mu.Unlock()
}

func themeInfo(t *engine.Theme) *service.ThemeInfo {
	sizes := make(map[engine.AdventureLength]int)
	for _, l := range engine.AdventureLengths() {
		sizes[l] = engine.TierFor(t, l).MazeSize
	}
	return &service.ThemeInfo{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		PlayerEmojis: t.PlayerEmojis,
		FriendCount:  len(t.Friends),
		MazeSizes:    sizes,
	}
}
