package service

import (
	"context"
	"errors"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/persistence"
	"github.com/wricardo/emoji-maze-quest/game/session"
	"github.com/wricardo/emoji-maze-quest/identity"
)

var (
	ErrThemeNotFound  = errors.New("theme not found")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownAction  = errors.New("unknown action")
)

// GameService defines all game-related operations
type GameService interface {
	// Themes
	ListThemes(ctx context.Context) ([]*ThemeInfo, error)
	GetTheme(ctx context.Context, themeID string) (*engine.Theme, error)

	// Profiles and identity
	Bootstrap(ctx context.Context, profile string) (*Bootstrap, error)
	CreateIdentity(ctx context.Context, profile string) (*ProfileIdentity, error)
	Login(ctx context.Context, profile string, code []string) (*ProfileIdentity, error)
	ForgetIdentity(ctx context.Context, profile string) error
	GetStats(ctx context.Context, profile string) (*engine.LifetimeStats, error)

	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*session.View, error)
	GetSession(ctx context.Context, sessionID string) (*session.View, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	LeaveSession(ctx context.Context, sessionID string) (*session.View, error)

	// Game Operations
	Move(ctx context.Context, sessionID, direction string) (*session.View, error)
	Answer(ctx context.Context, sessionID string, correct bool) (*session.View, error)
	Action(ctx context.Context, sessionID, action string) (*session.View, error)
}

// SessionManager defines the live session registry
type SessionManager interface {
	GetOrCreate(theme *engine.Theme, records *persistence.Manager) (*session.Controller, bool)
	Get(id string) (*session.Controller, error)
	List() []*session.Controller
	Delete(id string) error
}

// ThemeCatalog handles theme loading
type ThemeCatalog interface {
	LoadTheme(id string) (*engine.Theme, error)
	ListThemes() ([]*ThemeInfo, error)
	GetDefault() *engine.Theme
}

// IdentityService is the remote identity API
type IdentityService interface {
	FetchCategories(ctx context.Context) (*identity.Categories, error)
	CreateIdentity(ctx context.Context) (*identity.CreatedIdentity, error)
	Validate(ctx context.Context, code []string) (*identity.Player, error)
}
