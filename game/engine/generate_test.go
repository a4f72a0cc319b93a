package engine

import (
	"testing"
)

func TestGenerateMaze_AllPathCellsReachable(t *testing.T) {
	for size := 3; size <= 31; size += 2 {
		for _, braid := range []float64{0, 0.3, 1} {
			for seed := int64(1); seed <= 10; seed++ {
				m := GenerateMaze(size, braid, NewRand(seed))
				start := Position{X: 1, Y: 1}
				if !m.Reachable(start) {
					t.Fatalf("size=%d braid=%v seed=%d: maze not connected\n%s", size, braid, seed, m)
				}
			}
		}
	}
}

func TestGenerateMaze_PerfectMazeCellCount(t *testing.T) {
	for size := 3; size <= 21; size += 2 {
		m := GenerateMaze(size, 0, NewRand(7))
		k := (size - 1) / 2
		if got, want := CountPathCells(m), 2*k*k-1; got != want {
			t.Errorf("size %d: expected %d path cells, got %d", size, want, got)
		}
	}
}

func TestGenerateMaze_JunctionsAreOpen(t *testing.T) {
	m := GenerateMaze(15, 0.2, NewRand(3))
	for y := 1; y < m.Size; y += 2 {
		for x := 1; x < m.Size; x += 2 {
			if m.Cells[y][x].Wall {
				t.Errorf("junction (%d,%d) should be open", x, y)
			}
		}
	}
	for y := 0; y < m.Size; y += 2 {
		for x := 0; x < m.Size; x += 2 {
			if !m.Cells[y][x].Wall {
				t.Errorf("even/even cell (%d,%d) should be a wall", x, y)
			}
		}
	}
}

func TestGenerateMaze_BorderIsWall(t *testing.T) {
	m := GenerateMaze(11, 1, NewRand(99))
	for i := 0; i < m.Size; i++ {
		edges := []Position{{i, 0}, {i, m.Size - 1}, {0, i}, {m.Size - 1, i}}
		for _, p := range edges {
			if m.IsPath(p) {
				t.Errorf("border cell (%d,%d) should be a wall", p.X, p.Y)
			}
		}
	}
}

func TestGenerateMaze_Deterministic(t *testing.T) {
	a := GenerateMaze(21, 0.1, NewRand(12345))
	b := GenerateMaze(21, 0.1, NewRand(12345))
	if a.String() != b.String() {
		t.Error("same seed should produce the same maze")
	}

	c := GenerateMaze(21, 0.1, NewRand(54321))
	if a.String() == c.String() {
		t.Error("different seeds should produce different mazes")
	}
}

func TestGenerateMaze_BraidAddsLoops(t *testing.T) {
	perfect := GenerateMaze(21, 0, NewRand(5))
	braided := GenerateMaze(21, 1, NewRand(5))

	if AnalyzeMaze(braided).DeadEnds >= AnalyzeMaze(perfect).DeadEnds {
		t.Errorf("full braiding should remove dead ends: perfect=%d braided=%d",
			AnalyzeMaze(perfect).DeadEnds, AnalyzeMaze(braided).DeadEnds)
	}
	if CountPathCells(braided) <= CountPathCells(perfect) {
		t.Error("braiding should open extra corridors")
	}
}

func TestGenerateMaze_DegenerateSizes(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		wantSize int
		wantPath int
	}{
		{"single cell", 1, 1, 1},
		{"zero", 0, 1, 1},
		{"negative", -4, 1, 1},
		{"two rounds up", 2, 3, 1},
		{"even rounds up", 8, 9, 31},
		{"too large", 500, MaxMazeSize, 2*30*30 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := GenerateMaze(tt.size, 0, NewRand(1))
			if m.Size != tt.wantSize {
				t.Errorf("expected size %d, got %d", tt.wantSize, m.Size)
			}
			if got := CountPathCells(m); got != tt.wantPath {
				t.Errorf("expected %d path cells, got %d", tt.wantPath, got)
			}
		})
	}
}

func TestMaze_Distances(t *testing.T) {
	m := GenerateMaze(9, 0, NewRand(2))
	start := Position{X: 1, Y: 1}
	dist := m.Distances(start)

	if dist[1][1] != 0 {
		t.Errorf("distance to self should be 0, got %d", dist[1][1])
	}
	if dist[0][0] != UnreachableDistance {
		t.Errorf("wall distance should be %d, got %d", UnreachableDistance, dist[0][0])
	}
	for _, p := range m.PathCells() {
		if p == start {
			continue
		}
		// Every open cell has a neighbour exactly one step closer
		found := false
		for _, n := range m.OpenNeighbours(p) {
			if dist[n.Y][n.X] == dist[p.Y][p.X]-1 {
				found = true
			}
		}
		if !found {
			t.Errorf("cell (%d,%d) at distance %d has no predecessor", p.X, p.Y, dist[p.Y][p.X])
		}
	}
}

func TestMaze_ShortestPath(t *testing.T) {
	m := GenerateMaze(11, 0, NewRand(8))
	from, to := Position{X: 1, Y: 1}, Position{X: 9, Y: 9}

	path := m.ShortestPath(from, to)
	if len(path) != m.Distances(from)[to.Y][to.X] {
		t.Fatalf("path length %d does not match distance %d", len(path), m.Distances(from)[to.Y][to.X])
	}
	prev := from
	for _, p := range path {
		if _, ok := DirectionTo(prev, p); !ok {
			t.Fatalf("path jumps from (%d,%d) to (%d,%d)", prev.X, prev.Y, p.X, p.Y)
		}
		if !m.IsPath(p) {
			t.Fatalf("path crosses wall at (%d,%d)", p.X, p.Y)
		}
		prev = p
	}
	if prev != to {
		t.Errorf("path ends at (%d,%d), want (%d,%d)", prev.X, prev.Y, to.X, to.Y)
	}

	if m.ShortestPath(from, Position{X: 0, Y: 0}) != nil {
		t.Error("path to a wall should be nil")
	}
}

func TestMaze_Validate(t *testing.T) {
	var nilMaze *Maze
	if err := nilMaze.Validate(); err == nil {
		t.Error("nil maze should be invalid")
	}

	m := GenerateMaze(7, 0, NewRand(1))
	if err := m.Validate(); err != nil {
		t.Errorf("generated maze should be valid: %v", err)
	}

	m.Cells = m.Cells[:6]
	if err := m.Validate(); err == nil {
		t.Error("maze with missing rows should be invalid")
	}

	even := NewMaze(6)
	if err := even.Validate(); err == nil {
		t.Error("even-sized maze should be invalid")
	}
}
