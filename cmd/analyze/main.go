// Command analyze prints quick, human-readable statistics about the mazes
// each theme generates. For every adventure length it generates a range of
// seeds and summarizes maze shape (path cells, dead ends, junctions,
// diameter), the walk from start to exit and how far apart the placed
// entities ended up.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wricardo/emoji-maze-quest/game/config"
	"github.com/wricardo/emoji-maze-quest/game/engine"
)

const defaultSeeds = 20

// LengthReport summarizes one adventure length of a theme over many seeds
type LengthReport struct {
	Length     engine.AdventureLength
	MazeSize   int
	Seeds      int
	Failures   int
	PathCells  float64
	DeadEnds   float64
	Junctions  float64
	Diameter   float64
	ExitWalk   float64 // start to exit graph distance
	MinSpacing int     // smallest distance between two entities over all seeds
	AvgSpacing float64 // mean of the per-seed smallest distance
}

func main() {
	themesDir := "configs"
	if len(os.Args) > 1 {
		themesDir = os.Args[1]
	}

	themes, err := config.NewManager(themesDir)
	if err != nil {
		fmt.Printf("Error opening themes: %v\n", err)
		os.Exit(1)
	}
	infos, err := themes.ListThemes()
	if err != nil {
		fmt.Printf("Error listing themes: %v\n", err)
		os.Exit(1)
	}

	for _, info := range infos {
		theme, err := themes.LoadTheme(info.ID)
		if err != nil {
			fmt.Printf("Error loading %s: %v\n", info.ID, err)
			continue
		}
		fmt.Printf("\n=== Analyzing %s ===\n", theme.ID)
		printReports(os.Stdout, theme, analyzeTheme(theme, defaultSeeds))
	}
}

// analyzeTheme generates every adventure length of theme with seeds 1..seeds
func analyzeTheme(theme *engine.Theme, seeds int) []LengthReport {
	now := time.Unix(0, 0)
	var reports []LengthReport

	for _, length := range engine.AdventureLengths() {
		r := LengthReport{Length: length, MazeSize: engine.TierFor(theme, length).MazeSize, MinSpacing: -1}
		ok := 0
		for seed := int64(1); seed <= int64(seeds); seed++ {
			r.Seeds++
			gs, err := engine.NewGameState(theme, engine.LaunchConfig{ThemeID: theme.ID, AdventureLength: length}, seed, now)
			if err != nil {
				r.Failures++
				continue
			}
			ok++

			stats := engine.AnalyzeMaze(gs.Maze)
			r.PathCells += float64(stats.PathCells)
			r.DeadEnds += float64(stats.DeadEnds)
			r.Junctions += float64(stats.Junctions)
			r.Diameter += float64(stats.Diameter)
			r.ExitWalk += float64(gs.Maze.Distances(gs.Start)[gs.Exit.Y][gs.Exit.X])

			spacing := minSpacing(gs)
			r.AvgSpacing += float64(spacing)
			if r.MinSpacing < 0 || spacing < r.MinSpacing {
				r.MinSpacing = spacing
			}
		}
		if ok > 0 {
			n := float64(ok)
			r.PathCells /= n
			r.DeadEnds /= n
			r.Junctions /= n
			r.Diameter /= n
			r.ExitWalk /= n
			r.AvgSpacing /= n
		}
		reports = append(reports, r)
	}
	return reports
}

// entities lists start, exit, challenges and friendlies in that order
func entities(gs *engine.GameState) []engine.Position {
	out := []engine.Position{gs.Start, gs.Exit}
	for _, c := range gs.Challenges {
		out = append(out, c.Position)
	}
	for _, f := range gs.Friendlies {
		out = append(out, f.Position)
	}
	return out
}

// minSpacing is the smallest graph distance between any two entities
func minSpacing(gs *engine.GameState) int {
	points := entities(gs)
	best := -1
	for i, p := range points {
		dist := gs.Maze.Distances(p)
		for _, q := range points[i+1:] {
			if d := dist[q.Y][q.X]; d >= 0 && (best < 0 || d < best) {
				best = d
			}
		}
	}
	return best
}

func printReports(w io.Writer, theme *engine.Theme, reports []LengthReport) {
	fmt.Fprintf(w, "Name: %s\n", theme.Name)
	fmt.Fprintf(w, "Friends: %d  Challenge kinds: %v\n", len(theme.Friends), theme.ChallengeKinds)

	for _, r := range reports {
		fmt.Fprintf(w, "\n[%s] %dx%d over %d seeds\n", r.Length, r.MazeSize, r.MazeSize, r.Seeds)
		if r.Failures > 0 {
			fmt.Fprintf(w, "⚠️  WARNING: %d seeds failed to generate\n", r.Failures)
		}
		if r.Failures == r.Seeds {
			continue
		}
		fmt.Fprintf(w, "  Path cells: %.1f  Dead ends: %.1f  Junctions: %.1f\n", r.PathCells, r.DeadEnds, r.Junctions)
		fmt.Fprintf(w, "  Diameter: %.1f  Start to exit: %.1f\n", r.Diameter, r.ExitWalk)
		fmt.Fprintf(w, "  Entity spacing: min %d, avg %.1f\n", r.MinSpacing, r.AvgSpacing)
		if r.MinSpacing <= 1 {
			fmt.Fprintf(w, "⚠️  Some entities are adjacent; consider a larger maze_sizes[%s]\n", r.Length)
		} else {
			fmt.Fprintf(w, "✅ Entities are spread out\n")
		}
	}
}
