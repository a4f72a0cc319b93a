package engine

import (
	"fmt"
	"regexp"
	"strings"
)

var themeIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateTheme validates a theme definition for correctness and playability
func ValidateTheme(theme *Theme) error {
	if theme == nil {
		return fmt.Errorf("theme validation: theme is nil")
	}
	if !themeIDPattern.MatchString(theme.ID) {
		return fmt.Errorf("theme validation: id %q must be lowercase letters, digits, '-' or '_'", theme.ID)
	}
	if strings.TrimSpace(theme.Name) == "" {
		return fmt.Errorf("theme validation: name is required")
	}
	if len(theme.PlayerEmojis) == 0 {
		return fmt.Errorf("theme validation: at least one player emoji is required")
	}

	if len(theme.Friends) == 0 {
		return fmt.Errorf("theme validation: at least one friend is required")
	}
	if len(theme.Friends) > MaxFriendsPerTheme {
		return fmt.Errorf("theme validation: at most %d friends, got %d", MaxFriendsPerTheme, len(theme.Friends))
	}
	for i, f := range theme.Friends {
		if strings.TrimSpace(f.Emoji) == "" {
			return fmt.Errorf("theme validation: friend %d has no emoji", i+1)
		}
		if strings.TrimSpace(f.Message) == "" {
			return fmt.Errorf("theme validation: friend %d (%s) has no message", i+1, f.Emoji)
		}
	}

	for length, size := range theme.MazeSizes {
		if !length.Valid() {
			return fmt.Errorf("theme validation: maze_sizes has unknown length %q", length)
		}
		if size%2 == 0 || size > MaxMazeSize {
			return fmt.Errorf("theme validation: maze_sizes[%s] must be odd and at most %d, got %d", length, MaxMazeSize, size)
		}
		if min := MinimumMazeSize(length.Tier()); size < min {
			return fmt.Errorf("theme validation: maze_sizes[%s] must be at least %d, got %d", length, min, size)
		}
	}

	if theme.Braid != nil && (*theme.Braid < 0 || *theme.Braid > 1) {
		return fmt.Errorf("theme validation: braid must be between 0 and 1, got %v", *theme.Braid)
	}

	if theme.Messages.Welcome == "" {
		return fmt.Errorf("theme validation: messages.welcome is required")
	}
	if !strings.Contains(theme.Messages.ExitLocked, "%d") {
		return fmt.Errorf("theme validation: messages.exit_locked must contain %%d for the missing challenge count")
	}
	if !strings.Contains(theme.Messages.FriendsMissing, "%d") {
		return fmt.Errorf("theme validation: messages.friends_missing must contain %%d for the missing friend count")
	}
	if theme.Messages.VictoryComplete == "" || theme.Messages.VictoryIncomplete == "" {
		return fmt.Errorf("theme validation: messages.victory_complete and messages.victory_incomplete are required")
	}

	return nil
}

// DefaultTheme is used when no theme files are available
func DefaultTheme() *Theme {
	t := &Theme{
		ID:             "meadow",
		Name:           "Meadow Maze",
		Description:    "A hedge maze full of lost animals",
		PlayerEmojis:   []string{"🧒", "🦊", "🐢"},
		ChallengeKinds: []string{"math"},
		Friends: []FriendSpec{
			{Emoji: "🐰", Name: "Bunny", Message: "Thank you for finding me!"},
			{Emoji: "🐥", Name: "Chick", Message: "Peep! Can I come along?"},
			{Emoji: "🦔", Name: "Hedgehog", Message: "I got lost in the hedges."},
		},
	}
	t.Messages.Welcome = "Find the exit and help everyone on the way!"
	t.Messages.ExitLocked = "The gate is locked. Solve %d more challenges first."
	t.Messages.FriendsMissing = "%d friends are still lost in the maze."
	t.Messages.VictoryComplete = "You made it out with everyone!"
	t.Messages.VictoryIncomplete = "You made it out!"
	return t
}
