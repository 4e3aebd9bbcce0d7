package maze

import (
	"math/rand"
	"time"
)

// Generate carves a width×height×levels maze with the growing-tree algorithm.
//
// In Mode3D a single carve starting at (0,0,0) spans every level, so vertical
// passages are ordinary edges. In Mode2D each level is carved independently
// from its own (0,0) corner. A nil rng falls back to a time-seeded source.
func Generate(width, height, levels int, mode Mode, rng *rand.Rand) (*Grid, error) {
	g, err := NewGrid(width, height, levels, mode)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	visited := make([]bool, g.size())
	if mode == Mode3D {
		g.growingTree(Coord{}, AllDirections(), visited, rng)
	} else {
		for l := 0; l < levels; l++ {
			g.growingTree(Coord{Level: l}, PlanarDirections(), visited, rng)
		}
	}

	g.placePortals()
	return g, nil
}

// growingTree runs one carve from start. Each step picks either a uniformly
// random active cell or the newest one with equal probability, so corridors
// stay long while the tree still branches.
func (g *Grid) growingTree(start Coord, dirs []Direction, visited []bool, rng *rand.Rand) {
	visited[g.index(start)] = true
	active := []Coord{start}

	var open [6]Direction
	for len(active) > 0 {
		i := len(active) - 1
		if rng.Float64() < 0.5 {
			i = rng.Intn(len(active))
		}
		cur := active[i]

		n := 0
		for _, d := range dirs {
			next, ok := g.Neighbor(cur, d)
			if ok && !visited[g.index(next)] {
				open[n] = d
				n++
			}
		}
		if n == 0 {
			// Dead end: swap-remove keeps removal O(1).
			last := len(active) - 1
			active[i] = active[last]
			active = active[:last]
			continue
		}

		d := open[rng.Intn(n)]
		next, _ := g.Neighbor(cur, d)
		g.Link(cur, d)
		visited[g.index(next)] = true
		active = append(active, next)
	}
}

// placePortals forces the entrance and exit boundary openings and makes sure
// the exit has at least one passage back into the maze.
func (g *Grid) placePortals() {
	g.Entrance, g.Exit = PortalsFor(g.Width, g.Height, g.Levels)
	g.Cells[g.Entrance.Level][g.Entrance.Row][g.Entrance.Col].Open(g.Entrance.Side)
	g.Cells[g.Exit.Level][g.Exit.Row][g.Exit.Col].Open(g.Exit.Side)
	g.linkExit()
}

func (g *Grid) linkExit() {
	exit := g.Exit.Coord
	cell := g.At(exit)
	for _, d := range AllDirections() {
		if !cell.Has(d) {
			continue
		}
		if _, ok := g.Neighbor(exit, d); ok {
			return
		}
	}
	for _, d := range []Direction{West, North, East, South, Down, Up} {
		if d.IsVertical() && g.Mode != Mode3D {
			continue
		}
		if g.Link(exit, d) {
			return
		}
	}
}
