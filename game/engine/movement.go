package engine

import (
	"fmt"
	"strings"
)

// Direction is one of the four movement directions
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// ParseDirection accepts the direction names and their first letters
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u", "north", "n":
		return Up, nil
	case "down", "d", "south", "s":
		return Down, nil
	case "left", "l", "west", "w":
		return Left, nil
	case "right", "r", "east", "e":
		return Right, nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// Step returns the position one cell away from p in direction d
func (d Direction) Step(p Position) Position {
	switch d {
	case Up:
		p.Y--
	case Down:
		p.Y++
	case Left:
		p.X--
	case Right:
		p.X++
	}
	return p
}

// PossibleMoves returns the directions that lead onto an open cell
func (gs *GameState) PossibleMoves() []Direction {
	var out []Direction
	for _, d := range []Direction{Up, Down, Left, Right} {
		if gs.Maze.IsPath(d.Step(gs.PlayerPos)) {
			out = append(out, d)
		}
	}
	return out
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// ShortestPath returns the cells from one position to another, excluding from.
// It returns nil when to is unreachable.
func (m *Maze) ShortestPath(from, to Position) []Position {
	dist := m.Distances(to)
	if !m.InBounds(from) || dist[from.Y][from.X] == UnreachableDistance {
		return nil
	}
	var path []Position
	cur := from
	for cur != to {
		for _, n := range m.OpenNeighbours(cur) {
			if dist[n.Y][n.X] == dist[cur.Y][cur.X]-1 {
				cur = n
				break
			}
		}
		path = append(path, cur)
	}
	return path
}

// DirectionTo returns the direction of an adjacent cell
func DirectionTo(from, to Position) (Direction, bool) {
	for _, d := range []Direction{Up, Down, Left, Right} {
		if d.Step(from) == to {
			return d, true
		}
	}
	return "", false
}
