package maze

// Direction is one of the six axis directions a passage can lead.
type Direction uint8

const (
	North Direction = iota // -row
	South                  // +row
	East                   // +col
	West                   // -col
	Up                     // +level
	Down                   // -level
	NoDir
)

var planarDirs = [...]Direction{North, South, East, West}
var allDirs = [...]Direction{North, South, East, West, Up, Down}

// PlanarDirections returns the four directions within a level.
func PlanarDirections() []Direction { return planarDirs[:] }

// AllDirections returns all six directions.
func AllDirections() []Direction { return allDirs[:] }

// Bit returns the Cell flag for d. NoDir maps to 0.
func (d Direction) Bit() Cell {
	if d >= NoDir {
		return 0
	}
	return 1 << d
}

// Opposite returns the Direction's opposite.
// NoDir is its own opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	case Down:
		return Up
	default:
		return NoDir
	}
}

// Offset returns the (dx, dy, dz) step for d, where dx moves along a row,
// dy moves across rows and dz moves across levels.
func (d Direction) Offset() (dx, dy, dz int) {
	switch d {
	case North:
		return 0, -1, 0
	case South:
		return 0, 1, 0
	case East:
		return 1, 0, 0
	case West:
		return -1, 0, 0
	case Up:
		return 0, 0, 1
	case Down:
		return 0, 0, -1
	default:
		return 0, 0, 0
	}
}

// IsVertical reports whether d crosses levels.
func (d Direction) IsVertical() bool { return d == Up || d == Down }

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// Cell is a passage bitmask; a set bit means the cell is open in that direction.
type Cell uint8

const (
	NorthBit Cell = 1 << North
	SouthBit Cell = 1 << South
	EastBit  Cell = 1 << East
	WestBit  Cell = 1 << West
	UpBit    Cell = 1 << Up
	DownBit  Cell = 1 << Down
)

func (c Cell) Has(d Direction) bool { return c&d.Bit() != 0 }

func (c *Cell) Open(d Direction) { *c |= d.Bit() }
