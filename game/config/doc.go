// Package config provides theme and process configuration for Emoji Maze Quest.
//
// The config package handles:
//   - Loading themes from JSON files
//   - Theme validation through engine.ValidateTheme
//   - Default theme selection
//   - Process settings read from MAZE_* environment variables
//
// Theme Format:
//
// Themes are stored as JSON files in the themes directory, one file per theme
// named after its id. Each theme defines:
//   - Player emojis to choose from
//   - The friends hidden in its mazes, with their rescue messages
//   - Challenge kinds the client cycles through
//   - Optional maze sizes per adventure length and a braid factor
//   - Messages for the exit gate and victory screens
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal().Err(err).Msg("themes")
//	}
//
//	theme, err := manager.LoadTheme("space")
//	themes, err := manager.ListThemes()
//
//	settings, err := config.LoadSettings()
package config
