package engine

import (
	"errors"
	"fmt"
	"math/rand"
)

// maxPlacementAttempts bounds random sampling per entity before the spacing
// threshold is relaxed.
const maxPlacementAttempts = 32

var ErrMazeTooSmall = errors.New("maze too small for adventure")

// Placement is the entity layout for one maze
type Placement struct {
	Start      Position   `json:"start"`
	Exit       Position   `json:"exit"`
	Challenges []Position `json:"challenges"`
	Friendlies []Position `json:"friendlies"`
}

// PlaceEntities places start, exit, challenges and friendlies on distinct path
// cells of m. Start and exit sit at the ends of an approximate diameter found
// by a double BFS sweep. The other entities keep a graph distance of at least
// a spacing threshold from everything placed so far; the threshold shrinks
// when sampling fails, so placement only fails when there are fewer path
// cells than entities.
func PlaceEntities(m *Maze, tier Tier, rng *rand.Rand) (*Placement, error) {
	cells := m.PathCells()
	if len(cells) < tier.Entities() {
		return nil, fmt.Errorf("%w: %d path cells, %d entities", ErrMazeTooSmall, len(cells), tier.Entities())
	}

	start := farthestFrom(m, cells[0])
	exit := farthestFrom(m, start)

	p := &Placement{Start: start, Exit: exit}
	occupied := map[Position]bool{start: true, exit: true}

	// nearest[y][x] is the graph distance to the closest placed entity
	nearest := m.Distances(start)
	span := nearest[exit.Y][exit.X]
	mergeNearest(nearest, m.Distances(exit))

	n := tier.Challenges + tier.Friendlies
	threshold := span / (n + 1)
	if threshold < 1 {
		threshold = 1
	}

	place := func() Position {
		for {
			for i := 0; i < maxPlacementAttempts; i++ {
				c := cells[rng.Intn(len(cells))]
				if !occupied[c] && nearest[c.Y][c.X] >= threshold {
					return c
				}
			}
			if threshold == 0 {
				break
			}
			threshold--
		}
		for _, c := range cells {
			if !occupied[c] {
				return c
			}
		}
		// unreachable: the cell count was checked up front
		return cells[0]
	}

	for i := 0; i < n; i++ {
		c := place()
		occupied[c] = true
		mergeNearest(nearest, m.Distances(c))
		if i < tier.Challenges {
			p.Challenges = append(p.Challenges, c)
		} else {
			p.Friendlies = append(p.Friendlies, c)
		}
	}

	return p, nil
}

// farthestFrom returns the reachable cell with the greatest graph distance from
// origin, breaking ties in row-major order.
func farthestFrom(m *Maze, origin Position) Position {
	dist := m.Distances(origin)
	best, bestDist := origin, 0
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			if dist[y][x] > bestDist {
				best, bestDist = Position{X: x, Y: y}, dist[y][x]
			}
		}
	}
	return best
}

func mergeNearest(nearest, dist [][]int) {
	for y := range nearest {
		for x := range nearest[y] {
			if dist[y][x] != UnreachableDistance && (nearest[y][x] == UnreachableDistance || dist[y][x] < nearest[y][x]) {
				nearest[y][x] = dist[y][x]
			}
		}
	}
}
