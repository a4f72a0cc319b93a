package engine

import "math/rand"

// junctionSteps moves between path junctions, skipping the wall in between
var junctionSteps = []Position{{0, -2}, {2, 0}, {0, 2}, {-2, 0}}

// NormalizeMazeSize clamps size to the supported range and makes it odd
func NormalizeMazeSize(size int) int {
	if size < MinMazeSize {
		size = MinMazeSize
	}
	if size%2 == 0 {
		size++
	}
	if size > MaxMazeSize {
		size = MaxMazeSize
	}
	return size
}

// GenerateMaze carves a maze of the given size using rng as the only source of
// randomness. The spanning tree over junctions is built by an iterative
// depth-first backtracker; braid in [0,1] is the chance that a dead end gets an
// extra opening, turning the perfect maze into one with loops.
func GenerateMaze(size int, braid float64, rng *rand.Rand) *Maze {
	size = NormalizeMazeSize(size)
	m := NewMaze(size)
	if size == 1 {
		m.Cells[0][0].Wall = false
		return m
	}

	start := Position{X: 1, Y: 1}
	m.Cells[start.Y][start.X].Wall = false
	stack := []Position{start}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]

		var candidates []Position
		for _, d := range junctionSteps {
			next := Position{X: cur.X + d.X, Y: cur.Y + d.Y}
			if next.X > 0 && next.Y > 0 && next.X < size-1 && next.Y < size-1 && m.Cells[next.Y][next.X].Wall {
				candidates = append(candidates, next)
			}
		}

		if len(candidates) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		next := candidates[rng.Intn(len(candidates))]
		m.Cells[(cur.Y+next.Y)/2][(cur.X+next.X)/2].Wall = false
		m.Cells[next.Y][next.X].Wall = false
		stack = append(stack, next)
	}

	braidMaze(m, braid, rng)
	return m
}

// braidMaze opens an extra corridor out of some dead ends. Only walls between
// two junctions are removed, so every junction stays reachable.
func braidMaze(m *Maze, braid float64, rng *rand.Rand) {
	if braid <= 0 {
		return
	}
	if braid > 1 {
		braid = 1
	}

	for y := 1; y < m.Size-1; y += 2 {
		for x := 1; x < m.Size-1; x += 2 {
			p := Position{X: x, Y: y}
			if len(m.OpenNeighbours(p)) != 1 {
				continue
			}
			if rng.Float64() >= braid {
				continue
			}

			var walls []Position
			for _, d := range junctionSteps {
				next := Position{X: x + d.X, Y: y + d.Y}
				wall := Position{X: x + d.X/2, Y: y + d.Y/2}
				if next.X > 0 && next.Y > 0 && next.X < m.Size-1 && next.Y < m.Size-1 && m.Cells[wall.Y][wall.X].Wall {
					walls = append(walls, wall)
				}
			}
			if len(walls) == 0 {
				continue
			}
			w := walls[rng.Intn(len(walls))]
			m.Cells[w.Y][w.X].Wall = false
		}
	}
}

// NewRand returns a deterministic random source for seed
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
