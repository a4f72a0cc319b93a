package identity

import (
	"encoding/json"
	"time"
)

// CategoryItem is one pickable emoji of a code category
type CategoryItem struct {
	Emoji string `json:"emoji"`
	Slug  string `json:"slug"`
}

// Categories lists the emoji choices for each of the four code positions
type Categories struct {
	Categories [][]CategoryItem `json:"categories"`
	Labels     []string         `json:"labels"`
}

// CreatedIdentity is the response to creating a new identity
type CreatedIdentity struct {
	Code     []string `json:"code"`
	Emojis   []string `json:"emojis"`
	PlayerID string   `json:"playerId"`
}

// Progress maps a theme ID to the serialised adventure for that theme
type Progress map[string]json.RawMessage

// Player is an identity as known by the remote service
type Player struct {
	Code      []string  `json:"code"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SyncResult acknowledges a progress upload
type SyncResult struct {
	OK        bool      `json:"ok"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrorResponse is the body of a non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}

type validateRequest struct {
	Code []string `json:"code"`
}

type progressRequest struct {
	Progress Progress `json:"progress"`
}
