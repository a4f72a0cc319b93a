package engine

// MazeStats summarises the shape of a generated maze
type MazeStats struct {
	Size      int `json:"size"`
	PathCells int `json:"path_cells"`
	DeadEnds  int `json:"dead_ends"`
	Junctions int `json:"junctions"` // cells with three or more exits
	Diameter  int `json:"diameter"`  // start to exit distance of the double sweep
}

// AnalyzeMaze computes MazeStats for m
func AnalyzeMaze(m *Maze) MazeStats {
	stats := MazeStats{Size: m.Size}
	cells := m.PathCells()
	stats.PathCells = len(cells)
	for _, p := range cells {
		switch n := len(m.OpenNeighbours(p)); {
		case n == 1:
			stats.DeadEnds++
		case n >= 3:
			stats.Junctions++
		}
	}
	if len(cells) > 0 {
		a := farthestFrom(m, cells[0])
		b := farthestFrom(m, a)
		stats.Diameter = m.Distances(a)[b.Y][b.X]
	}
	return stats
}

// CountPathCells counts the open cells of the maze
func CountPathCells(m *Maze) int {
	return len(m.PathCells())
}
