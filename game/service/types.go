package service

import (
	"time"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/session"
	"github.com/wricardo/emoji-maze-quest/identity"
)

// ThemeInfo provides information about a theme
type ThemeInfo struct {
	ID           string                         `json:"id"`
	Name         string                         `json:"name"`
	Description  string                         `json:"description"`
	PlayerEmojis []string                       `json:"player_emojis"`
	FriendCount  int                            `json:"friend_count"`
	MazeSizes    map[engine.AdventureLength]int `json:"maze_sizes"`
}

// SessionInfo summarises a live session
type SessionInfo struct {
	ID             string        `json:"id"`
	Profile        string        `json:"profile"`
	ThemeID        string        `json:"theme_id"`
	State          session.State `json:"state"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
}

// CreateSessionRequest launches an adventure for a profile
type CreateSessionRequest struct {
	Profile         string               `json:"profile"`
	ThemeID         string               `json:"theme_id"`
	PlayerEmoji     string               `json:"player_emoji,omitempty"`
	AdventureLength string               `json:"adventure_length,omitempty"`
	MathSettings    *engine.MathSettings `json:"math_settings,omitempty"`
	Seed            *int64               `json:"seed,omitempty"`
}

// Surface names the onboarding screen a client should show
type Surface string

const (
	// SurfaceServiceDown replaces every other surface while the identity
	// service is unreachable
	SurfaceServiceDown Surface = "service_down"
	// SurfaceEnterCode asks for an existing code or offers a new one
	SurfaceEnterCode Surface = "enter_code"
	// SurfaceReady means the profile has a remembered code
	SurfaceReady Surface = "ready"
)

// Bootstrap is everything a client needs to render its first screen
type Bootstrap struct {
	Profile     string               `json:"profile"`
	Surface     Surface              `json:"surface"`
	Categories  *identity.Categories `json:"categories,omitempty"`
	Identity    *ProfileIdentity     `json:"identity,omitempty"`
	Stats       engine.LifetimeStats `json:"stats"`
	SavedThemes []string             `json:"saved_themes"`
	Themes      []*ThemeInfo         `json:"themes"`
	Error       string               `json:"error,omitempty"`
}

// ProfileIdentity is the identity code remembered for a profile
type ProfileIdentity struct {
	Profile      string    `json:"profile"`
	Code         []string  `json:"code"`
	Emojis       []string  `json:"emojis,omitempty"`
	PlayerID     string    `json:"player_id,omitempty"`
	RemoteThemes []string  `json:"remote_themes,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// Action names accepted by GameService.Action
const (
	ActionContinue      = "continue"
	ActionRestart       = "restart"
	ActionClose         = "close"
	ActionTake          = "take"
	ActionDecline       = "decline"
	ActionDismiss       = "dismiss"
	ActionKeepSearching = "keep_searching"
	ActionLeaveAnyway   = "leave_anyway"
	ActionAcknowledge   = "acknowledge"
)

// Actions lists every action name
func Actions() []string {
	return []string{
		ActionContinue, ActionRestart, ActionClose, ActionTake, ActionDecline,
		ActionDismiss, ActionKeepSearching, ActionLeaveAnyway, ActionAcknowledge,
	}
}
