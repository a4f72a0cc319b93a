// Command validate checks the theme JSON files of a themes directory
// (default ../configs). For each file it checks:
//   - JSON structure, with unknown keys rejected
//   - The theme ID matches the file name
//   - Theme rules: emojis, friends, maze sizes, braid and messages
//   - Playability: every adventure length generates, places and passes the
//     saved-state checks for a range of seeds, with the exit reachable
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/emoji-maze-quest/game/engine"
)

// playabilitySeeds is how many seeds each adventure length is generated with
const playabilitySeeds = 16

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateTheme loads and validates a single theme JSON file
func validateTheme(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var theme engine.Theme
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&theme); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if want := strings.TrimSuffix(result.File, ".json"); theme.ID != want {
		result.fail("Theme id %q does not match file name %q", theme.ID, want)
	}
	if err := engine.ValidateTheme(&theme); err != nil {
		result.fail("%v", err)
		return result
	}

	playable := validatePlayability(&theme, playabilitySeeds)
	if !playable.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, playable.Errors...)
	return result
}

// validatePlayability generates every adventure length of theme with seeds
// 1..seeds. On success Errors holds one informational line per length.
func validatePlayability(theme *engine.Theme, seeds int) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []string{}}
	now := time.Unix(0, 0)

	for _, length := range engine.AdventureLengths() {
		tier := engine.TierFor(theme, length)
		ok := true
		for seed := int64(1); seed <= int64(seeds); seed++ {
			gs, err := engine.NewGameState(theme, engine.LaunchConfig{ThemeID: theme.ID, AdventureLength: length}, seed, now)
			if err != nil {
				result.fail("%s seed %d: generation failed: %v", length, seed, err)
				ok = false
				break
			}
			if err := gs.Validate(); err != nil {
				result.fail("%s seed %d: generated state is invalid: %v", length, seed, err)
				ok = false
				break
			}
			if d := gs.Maze.Distances(gs.Start); d[gs.Exit.Y][gs.Exit.X] == engine.UnreachableDistance {
				result.fail("%s seed %d: exit (%d,%d) is unreachable", length, seed, gs.Exit.X, gs.Exit.Y)
				ok = false
				break
			}
		}
		if ok {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ %s: %dx%d maze, %d challenges, %d friends",
				length, tier.MazeSize, tier.MazeSize, tier.Challenges, tier.Friendlies))
		}
	}
	return result
}

// main scans the themes directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are invalid.
func main() {
	themesDir := "../configs"
	if len(os.Args) > 1 {
		themesDir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(themesDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding theme files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No theme files in %s\n", themesDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateTheme(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All themes are valid!")
	} else {
		fmt.Println("❌ Some themes have errors")
		os.Exit(1)
	}
}
