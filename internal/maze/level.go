package maze

// LevelCell is one cell of a level view. Walls carries the passage bits;
// HasUp/HasDown are set only by hole injection.
type LevelCell struct {
	Walls   Cell
	HasUp   bool
	HasDown bool
}

// LevelMaze is the per-level view consumed by the emitter, indexed [row][col].
type LevelMaze struct {
	Width  int
	Height int
	Level  int
	Cells  [][]LevelCell
}

func (lm LevelMaze) At(x, y int) LevelCell { return lm.Cells[y][x] }

func (lm LevelMaze) InBounds(x, y int) bool {
	return x >= 0 && x < lm.Width && y >= 0 && y < lm.Height
}

// LevelMazes splits g into fresh per-level views.
func (g *Grid) LevelMazes() []LevelMaze {
	out := make([]LevelMaze, g.Levels)
	for l := 0; l < g.Levels; l++ {
		cells := make([][]LevelCell, g.Height)
		for r := 0; r < g.Height; r++ {
			cells[r] = make([]LevelCell, g.Width)
			for c := 0; c < g.Width; c++ {
				cells[r][c] = LevelCell{Walls: g.Cells[l][r][c]}
			}
		}
		out[l] = LevelMaze{Width: g.Width, Height: g.Height, Level: l, Cells: cells}
	}
	return out
}

// NewLevelMaze builds an empty view, used when restoring from a snapshot.
func NewLevelMaze(width, height, level int) LevelMaze {
	cells := make([][]LevelCell, height)
	for r := range cells {
		cells[r] = make([]LevelCell, width)
	}
	return LevelMaze{Width: width, Height: height, Level: level, Cells: cells}
}
