package main

import (
	"github.com/wricardo/emoji-maze-quest/game/engine"
)

// Strategy walks a known maze: it visits every open challenge (and
// uncollected friend, when collecting) in greedy nearest-first order, then
// heads for the exit. Stepping on the exit early only raises a warning, so
// routes to other targets avoid it.
type Strategy struct {
	collectFriends bool
	plan           []engine.Position
}

// NewStrategy creates a strategy. Without collectFriends the player only
// talks to friends it happens to walk over.
func NewStrategy(collectFriends bool) *Strategy {
	return &Strategy{collectFriends: collectFriends}
}

// Reset forgets the current plan
func (s *Strategy) Reset() {
	s.plan = nil
}

// targets lists the cells still worth visiting before the exit
func (s *Strategy) targets(gs *engine.GameState) []engine.Position {
	var out []engine.Position
	for _, c := range gs.Challenges {
		if !c.Completed {
			out = append(out, c.Position)
		}
	}
	if s.collectFriends {
		for _, f := range gs.Friendlies {
			if !f.Collected {
				out = append(out, f.Position)
			}
		}
	}
	return out
}

// planCollectionOrder orders the open targets by repeatedly picking the
// nearest one from the previous stop
func (s *Strategy) planCollectionOrder(gs *engine.GameState) {
	blocked := withoutExit(gs)
	remaining := s.targets(gs)
	s.plan = s.plan[:0]

	from := gs.PlayerPos
	for len(remaining) > 0 {
		dist := blocked.Distances(from)
		best := -1
		for i, p := range remaining {
			d := dist[p.Y][p.X]
			if d == engine.UnreachableDistance {
				continue
			}
			if best < 0 || d < dist[remaining[best].Y][remaining[best].X] {
				best = i
			}
		}
		if best < 0 {
			// Only reachable through the exit; visit them last
			s.plan = append(s.plan, remaining...)
			break
		}
		from = remaining[best]
		s.plan = append(s.plan, from)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
}

// NextMove returns the next step, or false when no target can be reached
func (s *Strategy) NextMove(gs *engine.GameState) (engine.Direction, bool) {
	open := make(map[engine.Position]bool)
	for _, p := range s.targets(gs) {
		open[p] = true
	}
	// Drop targets completed since the last plan
	for len(s.plan) > 0 && !open[s.plan[0]] {
		s.plan = s.plan[1:]
	}
	if len(s.plan) == 0 && len(open) > 0 {
		s.planCollectionOrder(gs)
	}

	var path []engine.Position
	if len(s.plan) > 0 {
		path = withoutExit(gs).ShortestPath(gs.PlayerPos, s.plan[0])
		if path == nil {
			path = gs.Maze.ShortestPath(gs.PlayerPos, s.plan[0])
		}
	} else {
		path = gs.Maze.ShortestPath(gs.PlayerPos, gs.Exit)
	}
	if len(path) == 0 {
		return "", false
	}
	return engine.DirectionTo(gs.PlayerPos, path[0])
}

// withoutExit returns a copy of the maze with the exit walled off
func withoutExit(gs *engine.GameState) *engine.Maze {
	m := gs.Maze.Clone()
	m.Cells[gs.Exit.Y][gs.Exit.X].Wall = true
	return m
}
