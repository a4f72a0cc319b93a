package engine

import "fmt"

// Maze is a square grid of cells. Cells at odd row and odd column are path
// junctions; the others are walls unless carved into corridors.
type Maze struct {
	Size  int      `json:"size"`
	Cells [][]Cell `json:"cells"`
}

var neighbourSteps = []Position{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// NewMaze returns a size x size maze made entirely of walls
func NewMaze(size int) *Maze {
	cells := make([][]Cell, size)
	for y := range cells {
		cells[y] = make([]Cell, size)
		for x := range cells[y] {
			cells[y][x].Wall = true
		}
	}
	return &Maze{Size: size, Cells: cells}
}

// InBounds reports whether p lies on the grid
func (m *Maze) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Size && p.Y < m.Size
}

// IsPath reports whether p is an open cell
func (m *Maze) IsPath(p Position) bool {
	return m.InBounds(p) && !m.Cells[p.Y][p.X].Wall
}

// PathCells returns every open cell in row-major order
func (m *Maze) PathCells() []Position {
	var cells []Position
	for y := 0; y < m.Size; y++ {
		for x := 0; x < m.Size; x++ {
			if !m.Cells[y][x].Wall {
				cells = append(cells, Position{X: x, Y: y})
			}
		}
	}
	return cells
}

// OpenNeighbours returns the open cells adjacent to p
func (m *Maze) OpenNeighbours(p Position) []Position {
	var out []Position
	for _, d := range neighbourSteps {
		n := Position{X: p.X + d.X, Y: p.Y + d.Y}
		if m.IsPath(n) {
			out = append(out, n)
		}
	}
	return out
}

// Distances returns the BFS graph distance from start to every cell.
// Walls and unreachable cells hold UnreachableDistance.
func (m *Maze) Distances(start Position) [][]int {
	dist := make([][]int, m.Size)
	for y := range dist {
		dist[y] = make([]int, m.Size)
		for x := range dist[y] {
			dist[y][x] = UnreachableDistance
		}
	}
	if !m.IsPath(start) {
		return dist
	}

	dist[start.Y][start.X] = 0
	queue := []Position{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range m.OpenNeighbours(cur) {
			if dist[n.Y][n.X] == UnreachableDistance {
				dist[n.Y][n.X] = dist[cur.Y][cur.X] + 1
				queue = append(queue, n)
			}
		}
	}
	return dist
}

// Reachable reports whether every path cell can be reached from start
func (m *Maze) Reachable(start Position) bool {
	dist := m.Distances(start)
	for _, p := range m.PathCells() {
		if dist[p.Y][p.X] == UnreachableDistance {
			return false
		}
	}
	return true
}

// Validate checks the structural shape of a maze loaded from storage
func (m *Maze) Validate() error {
	if m == nil {
		return fmt.Errorf("maze is missing")
	}
	if m.Size < MinMazeSize || m.Size > MaxMazeSize || m.Size%2 == 0 {
		return fmt.Errorf("maze size %d must be odd and between %d and %d", m.Size, MinMazeSize, MaxMazeSize)
	}
	if len(m.Cells) != m.Size {
		return fmt.Errorf("maze has %d rows, want %d", len(m.Cells), m.Size)
	}
	for y, row := range m.Cells {
		if len(row) != m.Size {
			return fmt.Errorf("maze row %d has %d cells, want %d", y, len(row), m.Size)
		}
	}
	return nil
}

// Clone returns a deep copy of the maze
func (m *Maze) Clone() *Maze {
	if m == nil {
		return nil
	}
	out := &Maze{Size: m.Size, Cells: make([][]Cell, len(m.Cells))}
	for y, row := range m.Cells {
		out.Cells[y] = append([]Cell(nil), row...)
	}
	return out
}

// String draws the maze with '#' for walls and '.' for paths
func (m *Maze) String() string {
	buf := make([]byte, 0, m.Size*(m.Size+1))
	for _, row := range m.Cells {
		for _, c := range row {
			if c.Wall {
				buf = append(buf, '#')
			} else {
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
