package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/persistence"
	"github.com/wricardo/emoji-maze-quest/game/session"
	"github.com/wricardo/emoji-maze-quest/identity"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	themes   ThemeCatalog
	store    persistence.Store
	ident    IdentityService
	mu       sync.Mutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, themes ThemeCatalog, store persistence.Store, ident IdentityService) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		themes:   themes,
		store:    store,
		ident:    ident,
	}
}

func (s *gameServiceImpl) records(profile string) (*persistence.Manager, error) {
	m, err := persistence.NewManager(s.store, profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProfile, profile)
	}
	return m, nil
}

func (s *gameServiceImpl) loadTheme(themeID string) (*engine.Theme, error) {
	if themeID == "" {
		if t := s.themes.GetDefault(); t != nil {
			return t, nil
		}
	}
	theme, err := s.themes.LoadTheme(themeID)
	if err != nil {
		available := s.themeIDs()
		if len(available) > 0 {
			return nil, fmt.Errorf("%w: '%s'. Available themes: %s", ErrThemeNotFound, themeID, strings.Join(available, ", "))
		}
		return nil, fmt.Errorf("%w: '%s': %v", ErrThemeNotFound, themeID, err)
	}
	return theme, nil
}

func (s *gameServiceImpl) themeIDs() []string {
	infos, err := s.themes.ListThemes()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	return ids
}

// ListThemes returns the playable themes
func (s *gameServiceImpl) ListThemes(ctx context.Context) ([]*ThemeInfo, error) {
	return s.themes.ListThemes()
}

// GetTheme returns a theme definition
func (s *gameServiceImpl) GetTheme(ctx context.Context, themeID string) (*engine.Theme, error) {
	return s.loadTheme(themeID)
}

// Bootstrap gathers the onboarding state of a profile. A failed category
// fetch always yields the service-down surface so the code entry screen is
// never shown without its emoji.
func (s *gameServiceImpl) Bootstrap(ctx context.Context, profile string) (*Bootstrap, error) {
	records, err := s.records(profile)
	if err != nil {
		return nil, err
	}

	b := &Bootstrap{Profile: profile, SavedThemes: []string{}}

	b.Stats, err = records.LoadStats(ctx)
	if err != nil {
		log.Warn().Err(err).Str("profile", profile).Msg("stats unreadable, reporting zero")
		b.Stats = engine.LifetimeStats{}
	}
	if saved, err := records.ListSessions(ctx); err == nil {
		b.SavedThemes = saved
	}
	if themes, err := s.themes.ListThemes(); err == nil {
		b.Themes = themes
	}

	rec, err := records.LoadIdentity(ctx)
	switch {
	case err == nil:
		b.Identity = profileIdentity(profile, rec)
	case !errors.Is(err, persistence.ErrNotFound):
		log.Warn().Err(err).Str("profile", profile).Msg("identity record unreadable, ignoring")
	}

	cats, err := s.ident.FetchCategories(ctx)
	if err != nil {
		log.Warn().Err(err).Str("profile", profile).Msg("identity service unavailable")
		b.Surface = SurfaceServiceDown
		b.Error = err.Error()
		return b, nil
	}
	b.Categories = cats
	if b.Identity != nil {
		b.Surface = SurfaceReady
	} else {
		b.Surface = SurfaceEnterCode
	}
	return b, nil
}

// CreateIdentity registers a new code and remembers it for the profile
func (s *gameServiceImpl) CreateIdentity(ctx context.Context, profile string) (*ProfileIdentity, error) {
	records, err := s.records(profile)
	if err != nil {
		return nil, err
	}
	created, err := s.ident.CreateIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := records.SaveIdentity(ctx, created.Code, created.Emojis); err != nil {
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}
	log.Info().Str("profile", profile).Str("player", created.PlayerID).Msg("identity created")

	rec, err := records.LoadIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload identity: %w", err)
	}
	out := profileIdentity(profile, rec)
	out.PlayerID = created.PlayerID
	return out, nil
}

// Login validates an existing code and remembers it for the profile
func (s *gameServiceImpl) Login(ctx context.Context, profile string, code []string) (*ProfileIdentity, error) {
	records, err := s.records(profile)
	if err != nil {
		return nil, err
	}
	player, err := s.ident.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := records.SaveIdentity(ctx, player.Code, nil); err != nil {
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}
	rec, err := records.LoadIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reload identity: %w", err)
	}

	out := profileIdentity(profile, rec)
	for theme, progress := range player.Progress {
		if string(progress) != "null" {
			out.RemoteThemes = append(out.RemoteThemes, theme)
		}
	}
	sort.Strings(out.RemoteThemes)
	return out, nil
}

// ForgetIdentity drops the remembered code. Saved adventures stay.
func (s *gameServiceImpl) ForgetIdentity(ctx context.Context, profile string) error {
	records, err := s.records(profile)
	if err != nil {
		return err
	}
	return records.ClearIdentity(ctx)
}

// GetStats returns lifetime stats of a profile
func (s *gameServiceImpl) GetStats(ctx context.Context, profile string) (*engine.LifetimeStats, error) {
	records, err := s.records(profile)
	if err != nil {
		return nil, err
	}
	stats, err := records.LoadStats(ctx)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CreateSession starts (or rejoins) the adventure of a profile in a theme
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*session.View, error) {
	records, err := s.records(req.Profile)
	if err != nil {
		return nil, err
	}
	theme, err := s.loadTheme(req.ThemeID)
	if err != nil {
		return nil, err
	}
	length, err := engine.ParseAdventureLength(req.AdventureLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	launch := engine.LaunchConfig{
		ThemeID:         theme.ID,
		PlayerEmoji:     req.PlayerEmoji,
		AdventureLength: length,
		MathSettings:    req.MathSettings,
		Seed:            req.Seed,
	}
	if launch.PlayerEmoji == "" && len(theme.PlayerEmojis) > 0 {
		launch.PlayerEmoji = theme.PlayerEmojis[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, created := s.sessions.GetOrCreate(theme, records)
	if c.State() != session.Idle {
		v := c.View()
		return &v, nil
	}
	v, err := c.Start(ctx, launch)
	if err != nil {
		if created {
			_ = s.sessions.Delete(c.ID())
		}
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return &v, nil
}

// GetSession returns the current view of a session, applying any elapsed
// timers first
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*session.View, error) {
	c, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	v, err := c.Tick()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListSessions returns all live sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	controllers := s.sessions.List()
	result := make([]*SessionInfo, 0, len(controllers))
	for _, c := range controllers {
		result = append(result, &SessionInfo{
			ID:             c.ID(),
			Profile:        c.Profile(),
			ThemeID:        c.ThemeID(),
			State:          c.State(),
			CreatedAt:      c.CreatedAt(),
			LastAccessedAt: c.LastAccess(),
		})
	}
	return result, nil
}

// LeaveSession saves the adventure and closes the session
func (s *gameServiceImpl) LeaveSession(ctx context.Context, sessionID string) (*session.View, error) {
	c, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	v := c.View()
	if c.State() != session.Idle {
		if v, err = c.Leave(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Delete(sessionID); err != nil {
		return nil, err
	}
	return &v, nil
}

// Move walks the player one cell
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string) (*session.View, error) {
	c, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	v, err := c.Move(ctx, dir)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Answer reports the result of the active challenge
func (s *gameServiceImpl) Answer(ctx context.Context, sessionID string, correct bool) (*session.View, error) {
	c, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	v, err := c.Answer(ctx, correct)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Action applies a named modal or resume action
func (s *gameServiceImpl) Action(ctx context.Context, sessionID, action string) (*session.View, error) {
	c, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var fn func(context.Context) (session.View, error)
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionContinue:
		fn = c.Continue
	case ActionRestart:
		fn = c.Restart
	case ActionClose:
		fn = c.Close
	case ActionTake:
		fn = c.TakeFriend
	case ActionDecline:
		fn = c.Decline
	case ActionDismiss:
		fn = c.Dismiss
	case ActionKeepSearching:
		fn = c.KeepSearching
	case ActionLeaveAnyway:
		fn = c.LeaveAnyway
	case ActionAcknowledge:
		fn = c.Acknowledge
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownAction, action, strings.Join(Actions(), ", "))
	}

	v, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func profileIdentity(profile string, rec *persistence.IdentityRecord) *ProfileIdentity {
	return &ProfileIdentity{
		Profile: profile,
		Code:    rec.Code,
		Emojis:  rec.Emojis,
		SavedAt: rec.SavedAt,
	}
}

// compile-time check that the identity client satisfies IdentityService
var _ IdentityService = (*identity.Client)(nil)
