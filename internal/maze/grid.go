package maze

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDimensions = errors.New("maze: width, height and levels must be positive")

// Mode selects how levels are carved.
type Mode int

const (
	// Mode2D carves every level as an independent planar maze; levels are
	// joined afterwards by injected holes.
	Mode2D Mode = iota
	// Mode3D carves one connected graph across all levels.
	Mode3D
)

func (m Mode) String() string {
	if m == Mode3D {
		return "3d"
	}
	return "2d"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "2d", "twod", "":
		return Mode2D, nil
	case "3d", "threed":
		return Mode3D, nil
	default:
		return Mode2D, fmt.Errorf("maze: unknown mode %q", s)
	}
}

// Coord addresses one cell: Col is x, Row is y.
type Coord struct {
	Level int
	Row   int
	Col   int
}

// Portal is a cell opening onto the outer boundary.
type Portal struct {
	Coord
	Side Direction
}

// Grid holds the passage bitmask of every cell, indexed [level][row][col].
type Grid struct {
	Width  int
	Height int
	Levels int
	Mode   Mode

	Cells [][][]Cell

	Entrance Portal
	Exit     Portal
}

func NewGrid(width, height, levels int, mode Mode) (*Grid, error) {
	if width <= 0 || height <= 0 || levels <= 0 {
		return nil, fmt.Errorf("%w (got %dx%dx%d)", ErrInvalidDimensions, width, height, levels)
	}
	cells := make([][][]Cell, levels)
	for l := range cells {
		cells[l] = make([][]Cell, height)
		for r := range cells[l] {
			cells[l][r] = make([]Cell, width)
		}
	}
	return &Grid{
		Width:  width,
		Height: height,
		Levels: levels,
		Mode:   mode,
		Cells:  cells,
	}, nil
}

func (g *Grid) InBounds(c Coord) bool {
	return c.Level >= 0 && c.Level < g.Levels &&
		c.Row >= 0 && c.Row < g.Height &&
		c.Col >= 0 && c.Col < g.Width
}

func (g *Grid) At(c Coord) Cell { return g.Cells[c.Level][c.Row][c.Col] }

// Neighbor returns the cell one step from c in direction d.
func (g *Grid) Neighbor(c Coord, d Direction) (Coord, bool) {
	dx, dy, dz := d.Offset()
	n := Coord{Level: c.Level + dz, Row: c.Row + dy, Col: c.Col + dx}
	return n, g.InBounds(n)
}

// Link opens the passage between c and its neighbor in direction d on both sides.
func (g *Grid) Link(c Coord, d Direction) bool {
	n, ok := g.Neighbor(c, d)
	if !ok {
		return false
	}
	g.Cells[c.Level][c.Row][c.Col].Open(d)
	g.Cells[n.Level][n.Row][n.Col].Open(d.Opposite())
	return true
}

func (g *Grid) index(c Coord) int {
	return (c.Level*g.Height+c.Row)*g.Width + c.Col
}

func (g *Grid) size() int { return g.Levels * g.Height * g.Width }

// IsPortal reports whether the open bit d on c is the entrance or exit opening.
func (g *Grid) IsPortal(c Coord, d Direction) bool {
	return (g.Entrance.Coord == c && g.Entrance.Side == d) || (g.Exit.Coord == c && g.Exit.Side == d)
}

// PortalsFor returns the designated entrance and exit for a maze of the given
// shape. A single level runs west to east; stacked levels run from the north
// side of level 0 to the south side of the last level.
func PortalsFor(width, height, levels int) (entrance, exit Portal) {
	if levels <= 1 {
		return Portal{Coord: Coord{}, Side: West},
			Portal{Coord: Coord{Row: height - 1, Col: width - 1}, Side: East}
	}
	return Portal{Coord: Coord{}, Side: North},
		Portal{Coord: Coord{Level: levels - 1, Row: height - 1, Col: width - 1}, Side: South}
}
