package session

import (
	"time"

	"github.com/wricardo/emoji-maze-quest/game/engine"
)

// View is a snapshot of a session handed to transports. It never aliases the
// controller's game state.
type View struct {
	SessionID string    `json:"session_id"`
	Profile   string    `json:"profile"`
	ThemeID   string    `json:"theme_id"`
	State     State     `json:"state"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	Game            *engine.GameState  `json:"game,omitempty"`
	PossibleMoves   []engine.Direction `json:"possible_moves,omitempty"`
	TotalChallenges int                `json:"total_challenges"`
	RemainingCount  int                `json:"remaining_challenges"`
	MissingFriends  int                `json:"missing_friends"`

	ActiveChallenge *engine.Challenge `json:"active_challenge,omitempty"`
	Attempts        int               `json:"attempts,omitempty"`
	Solved          bool              `json:"solved,omitempty"`
	ActiveFriendly  *engine.Friendly  `json:"active_friendly,omitempty"`

	Resume *ResumeInfo           `json:"resume,omitempty"`
	Stats  *engine.LifetimeStats `json:"stats,omitempty"`
}

// ResumeInfo summarises a saved adventure while the player decides whether
// to continue it
type ResumeInfo struct {
	CompletedCount   int                      `json:"completed_count"`
	TotalChallenges  int                      `json:"total_challenges"`
	CollectedFriends []engine.CollectedFriend `json:"collected_friends"`
	TotalFriends     int                      `json:"total_friends"`
	AdventureLength  engine.AdventureLength   `json:"adventure_length"`
	SavedAt          time.Time                `json:"saved_at"`
}

func (c *Controller) viewLocked() View {
	v := View{
		SessionID: c.id,
		Profile:   c.records.Profile(),
		ThemeID:   c.theme.ID,
		State:     c.state,
		Outcome:   c.outcome,
		Message:   c.message,
		UpdatedAt: c.lastAccess,
	}

	if c.pending != nil && c.state == PendingResume {
		v.Resume = &ResumeInfo{
			CompletedCount:   c.pending.CompletedCount,
			TotalChallenges:  len(c.pending.Challenges),
			CollectedFriends: append([]engine.CollectedFriend{}, c.pending.CollectedFriends...),
			TotalFriends:     len(c.pending.Friendlies),
			AdventureLength:  c.pending.AdventureLength,
			SavedAt:          c.pending.UpdatedAt,
		}
	}

	if c.gs != nil {
		v.Game = c.gs.Clone()
		v.TotalChallenges = len(c.gs.Challenges)
		v.RemainingCount = c.gs.RemainingChallenges()
		v.MissingFriends = c.gs.MissingFriends()
		if c.state == Exploring {
			v.PossibleMoves = c.gs.PossibleMoves()
		}
		if c.state == ChallengeActive && c.activeChallenge >= 0 {
			ch := c.gs.Challenges[c.activeChallenge]
			v.ActiveChallenge = &ch
			v.Attempts = c.attempts
			v.Solved = !c.autoCloseAt.IsZero()
		}
		if c.state == FriendlyDialog && c.activeFriendly >= 0 {
			f := c.gs.Friendlies[c.activeFriendly]
			v.ActiveFriendly = &f
		}
	}

	if c.stats != nil {
		s := *c.stats
		v.Stats = &s
	}
	return v
}
