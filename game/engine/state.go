package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var (
	ErrUnknownChallenge = errors.New("unknown challenge")
	ErrUnknownFriendly  = errors.New("unknown friendly")
)

// NewGameState generates a fresh adventure for the launch configuration. The
// maze and placement draw only from a random source seeded with seed.
func NewGameState(theme *Theme, launch LaunchConfig, seed int64, now time.Time) (*GameState, error) {
	length := launch.AdventureLength
	if !length.Valid() {
		length = Short
	}
	tier := TierFor(theme, length)

	rng := NewRand(seed)
	maze := GenerateMaze(tier.MazeSize, tier.Braid, rng)
	placement, err := PlaceEntities(maze, tier, rng)
	if err != nil {
		return nil, err
	}

	state := &GameState{
		ThemeID:          launch.ThemeID,
		Maze:             maze,
		Start:            placement.Start,
		Exit:             placement.Exit,
		Challenges:       make([]Challenge, 0, len(placement.Challenges)),
		Friendlies:       make([]Friendly, 0, len(placement.Friendlies)),
		CollectedFriends: []CollectedFriend{},
		PlayerPos:        placement.Start,
		MathSettings:     launch.MathSettings,
		PlayerEmoji:      launch.PlayerEmoji,
		AdventureLength:  length,
		Seed:             seed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	maze.Cells[placement.Start.Y][placement.Start.X].Visited = true

	var kinds []string
	var friends []FriendSpec
	if theme != nil {
		kinds = theme.ChallengeKinds
		friends = theme.Friends
	}

	for i, pos := range placement.Challenges {
		c := Challenge{ID: fmt.Sprintf("challenge-%d", i+1), Position: pos}
		if len(kinds) > 0 {
			c.Kind = kinds[i%len(kinds)]
		}
		state.Challenges = append(state.Challenges, c)
	}

	order := friendOrder(len(friends), len(placement.Friendlies), rng)
	for i, pos := range placement.Friendlies {
		f := Friendly{ID: fmt.Sprintf("friend-%d", i+1), Position: pos, Emoji: "🙂"}
		if order != nil {
			tmpl := friends[order[i]]
			f.Emoji, f.Name, f.Message = tmpl.Emoji, tmpl.Name, tmpl.Message
		}
		state.Friendlies = append(state.Friendlies, f)
	}

	return state, nil
}

// friendOrder picks which theme friends appear, cycling when the theme has
// fewer friends than the tier needs.
func friendOrder(available, need int, rng *rand.Rand) []int {
	if available == 0 {
		return nil
	}
	perm := rng.Perm(available)
	out := make([]int, need)
	for i := range out {
		out[i] = perm[i%available]
	}
	return out
}

// ChallengeAt returns the index of the challenge at p, or -1
func (gs *GameState) ChallengeAt(p Position) int {
	for i := range gs.Challenges {
		if gs.Challenges[i].Position == p {
			return i
		}
	}
	return -1
}

// FriendlyAt returns the index of the friendly at p, or -1
func (gs *GameState) FriendlyAt(p Position) int {
	for i := range gs.Friendlies {
		if gs.Friendlies[i].Position == p {
			return i
		}
	}
	return -1
}

// IsExit reports whether p is the exit cell
func (gs *GameState) IsExit(p Position) bool {
	return gs.Exit == p
}

// RemainingChallenges is the number of challenges not yet completed
func (gs *GameState) RemainingChallenges() int {
	return len(gs.Challenges) - gs.CompletedCount
}

// MissingFriends is the number of friendlies not yet collected
func (gs *GameState) MissingFriends() int {
	return len(gs.Friendlies) - len(gs.CollectedFriends)
}

// CompleteChallenge marks a challenge solved. Completing an already solved
// challenge is a no-op, keeping CompletedCount equal to the solved count.
func (gs *GameState) CompleteChallenge(id string) error {
	for i := range gs.Challenges {
		c := &gs.Challenges[i]
		if c.ID != id {
			continue
		}
		if !c.Completed {
			c.Completed = true
			gs.CompletedCount++
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownChallenge, id)
}

// CollectFriendly rescues a friendly and appends it to CollectedFriends
func (gs *GameState) CollectFriendly(id string) error {
	for i := range gs.Friendlies {
		f := &gs.Friendlies[i]
		if f.ID != id {
			continue
		}
		f.Spoken = true
		if !f.Collected {
			f.Collected = true
			gs.CollectedFriends = append(gs.CollectedFriends, CollectedFriend{ID: f.ID, Emoji: f.Emoji})
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownFriendly, id)
}

// MarkSpoken records that a friendly's dialogue has been shown
func (gs *GameState) MarkSpoken(id string) error {
	for i := range gs.Friendlies {
		if gs.Friendlies[i].ID == id {
			gs.Friendlies[i].Spoken = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownFriendly, id)
}

// Visit moves the player to p and marks the cell visited
func (gs *GameState) Visit(p Position) {
	gs.PlayerPos = p
	if gs.Maze != nil && gs.Maze.InBounds(p) {
		gs.Maze.Cells[p.Y][p.X].Visited = true
	}
}

// Validate checks every structural invariant of a state loaded from storage
func (gs *GameState) Validate() error {
	if gs == nil {
		return errors.New("state is missing")
	}
	if gs.ThemeID == "" {
		return errors.New("theme_id is required")
	}
	if err := gs.Maze.Validate(); err != nil {
		return err
	}

	seen := map[Position]string{}
	claim := func(p Position, what string) error {
		if !gs.Maze.IsPath(p) {
			return fmt.Errorf("%s at (%d,%d) is not on a path cell", what, p.X, p.Y)
		}
		if other, ok := seen[p]; ok {
			return fmt.Errorf("%s shares (%d,%d) with %s", what, p.X, p.Y, other)
		}
		seen[p] = what
		return nil
	}

	if err := claim(gs.Start, "start"); err != nil {
		return err
	}
	if err := claim(gs.Exit, "exit"); err != nil {
		return err
	}

	completed := 0
	for _, c := range gs.Challenges {
		if err := claim(c.Position, c.ID); err != nil {
			return err
		}
		if c.Completed {
			completed++
		}
	}
	if completed != gs.CompletedCount {
		return fmt.Errorf("completed_count %d does not match %d completed challenges", gs.CompletedCount, completed)
	}

	collected := map[string]bool{}
	for _, f := range gs.Friendlies {
		if err := claim(f.Position, f.ID); err != nil {
			return err
		}
		if f.Collected {
			if !f.Spoken {
				return fmt.Errorf("%s is collected but was never spoken to", f.ID)
			}
			collected[f.ID] = true
		}
	}
	if len(gs.CollectedFriends) != len(collected) {
		return fmt.Errorf("collected_friends has %d entries, %d friendlies are collected", len(gs.CollectedFriends), len(collected))
	}
	for _, cf := range gs.CollectedFriends {
		if !collected[cf.ID] {
			return fmt.Errorf("collected friend %s is not a collected friendly", cf.ID)
		}
		delete(collected, cf.ID)
	}

	if !gs.Maze.IsPath(gs.PlayerPos) {
		return fmt.Errorf("player at (%d,%d) is not on a path cell", gs.PlayerPos.X, gs.PlayerPos.Y)
	}
	if !gs.Maze.Reachable(gs.Start) {
		return errors.New("maze is not connected")
	}
	return nil
}

// Clone returns a deep copy of the state
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	out := *gs
	out.Maze = gs.Maze.Clone()
	out.Challenges = append([]Challenge(nil), gs.Challenges...)
	out.Friendlies = append([]Friendly(nil), gs.Friendlies...)
	out.CollectedFriends = append([]CollectedFriend{}, gs.CollectedFriends...)
	if gs.MathSettings != nil {
		ms := *gs.MathSettings
		ms.Operations = append([]string(nil), gs.MathSettings.Operations...)
		out.MathSettings = &ms
	}
	return &out
}

// Marshal encodes the state as JSON
func (gs *GameState) Marshal() ([]byte, error) {
	return json.Marshal(gs)
}

// UnmarshalGameState decodes and validates a state. Any failure means the
// record is unusable.
func UnmarshalGameState(data []byte) (*GameState, error) {
	var gs GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	if err := gs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game state: %w", err)
	}
	if gs.CollectedFriends == nil {
		gs.CollectedFriends = []CollectedFriend{}
	}
	return &gs, nil
}
