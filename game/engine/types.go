package engine

import "time"

const (
	// Validation constants
	MinMazeSize         = 1
	MaxMazeSize         = 61
	DefaultBraid        = 0.1
	UnreachableDistance = -1
	MaxFriendsPerTheme  = 16
)

// Cell represents a single maze cell
type Cell struct {
	Wall    bool `json:"wall"`
	Visited bool `json:"visited,omitempty"` // presentation only
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Challenge is an embedded exercise gating the exit
type Challenge struct {
	ID        string   `json:"id"`
	Position  Position `json:"position"`
	Kind      string   `json:"kind,omitempty"`
	Completed bool     `json:"completed"`
}

// Friendly is a hidden character the player can rescue
type Friendly struct {
	ID        string   `json:"id"`
	Position  Position `json:"position"`
	Emoji     string   `json:"emoji"`
	Name      string   `json:"name,omitempty"`
	Message   string   `json:"message,omitempty"`
	Collected bool     `json:"collected"`
	Spoken    bool     `json:"spoken"`
}

// CollectedFriend records a rescued friendly in collection order
type CollectedFriend struct {
	ID    string `json:"id"`
	Emoji string `json:"emoji"`
}

// MathSettings configures the exercise generators. The engine carries it
// through untouched.
type MathSettings struct {
	Operations    []string `json:"operations,omitempty"`
	MaxOperand    int      `json:"max_operand,omitempty"`
	AllowNegative bool     `json:"allow_negative,omitempty"`
}

// GameState is the complete state of one adventure. It is the single unit of
// durable persistence.
type GameState struct {
	ThemeID          string            `json:"theme_id"`
	Maze             *Maze             `json:"maze"`
	Start            Position          `json:"start"`
	Exit             Position          `json:"exit"`
	Challenges       []Challenge       `json:"challenges"`
	Friendlies       []Friendly        `json:"friendlies"`
	CollectedFriends []CollectedFriend `json:"collected_friends"`
	PlayerPos        Position          `json:"player_pos"`
	CompletedCount   int               `json:"completed_count"`
	MathSettings     *MathSettings     `json:"math_settings,omitempty"`
	PlayerEmoji      string            `json:"player_emoji,omitempty"`
	AdventureLength  AdventureLength   `json:"adventure_length"`
	Seed             int64             `json:"seed"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// LaunchConfig is the transient configuration supplied when an adventure is
// launched. It never overrides progress held in a durable GameState.
type LaunchConfig struct {
	ThemeID         string          `json:"theme_id"`
	PlayerEmoji     string          `json:"player_emoji,omitempty"`
	AdventureLength AdventureLength `json:"adventure_length,omitempty"`
	MathSettings    *MathSettings   `json:"math_settings,omitempty"`
	Seed            *int64          `json:"seed,omitempty"`
}

// LifetimeStats aggregates results across adventures
type LifetimeStats struct {
	MazesCompleted int `json:"mazes_completed"`
	FriendsSaved   int `json:"friends_saved"`
}

// FriendSpec describes a friendly a theme can hide in its mazes
type FriendSpec struct {
	Emoji   string `json:"emoji"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Theme is a themed adventure definition loaded from JSON
type Theme struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description"`
	PlayerEmojis   []string                `json:"player_emojis"`
	Friends        []FriendSpec            `json:"friends"`
	ChallengeKinds []string                `json:"challenge_kinds"`
	MazeSizes      map[AdventureLength]int `json:"maze_sizes,omitempty"`
	Braid          *float64                `json:"braid,omitempty"`
	Messages       struct {
		Welcome           string `json:"welcome"`
		ExitLocked        string `json:"exit_locked"`
		FriendsMissing    string `json:"friends_missing"`
		VictoryComplete   string `json:"victory_complete"`
		VictoryIncomplete string `json:"victory_incomplete"`
	} `json:"messages"`
}
