package emit

import (
	"strconv"

	"voxelmaze.ai/internal/geometry"
	"voxelmaze.ai/internal/maze"
)

// Ladder facing codes. A ladder faces away from the block it hangs on.
const (
	FacingNorth = 2
	FacingSouth = 3
	FacingWest  = 4
	FacingEast  = 5
)

// WallOption is a wall a ladder could hang on. DX/DZ step from the ladder
// column into the wall.
type WallOption struct {
	Dir    maze.Direction
	Facing int
	DX, DZ int
}

// Placement records how one vertical connection was served.
type Placement struct {
	Level int
	X, Y  int
	Dir   maze.Direction
	// Wall is the side of the cell the ladder hangs on. For a fallback it is
	// the side of the cell centre the support pillar was built on.
	Wall     maze.Direction
	Score    int
	Fallback bool
	Column   geometry.Box
	Support  geometry.Box
}

func FacingFor(wall maze.Direction) int {
	switch wall {
	case maze.North:
		return FacingSouth
	case maze.South:
		return FacingNorth
	case maze.West:
		return FacingEast
	case maze.East:
		return FacingWest
	default:
		return FacingNorth
	}
}

// WallOptions returns the walls of cell (x, y) in lm that may carry a ladder.
// Outer boundary walls and sides with a passage are never candidates.
func WallOptions(p geometry.Params, lm maze.LevelMaze, x, y int) []WallOption {
	var out []WallOption
	c := lm.At(x, y)
	for _, d := range maze.PlanarDirections() {
		dx, dy, _ := d.Offset()
		if !lm.InBounds(x+dx, y+dy) {
			continue
		}
		if c.Walls.Has(d) {
			continue
		}
		_, _, sx, sz := p.FaceColumn(x, y, d)
		out = append(out, WallOption{Dir: d, Facing: FacingFor(d), DX: sx, DZ: sz})
	}
	return out
}

func (e *emitter) ladders() {
	e.add(Comment("ladders"))
	for _, lm := range e.levels {
		for _, hc := range maze.HoleCells(lm, len(e.levels)) {
			if hc.HasDown {
				e.placeLadder(hc, lm.Level, maze.Down)
			}
			// Connections already served from the level above are skipped.
			if hc.HasUp && !e.connectsDown(lm.Level+1, hc.X, hc.Y) {
				e.placeLadder(hc, lm.Level, maze.Up)
			}
		}
	}
}

func (e *emitter) connectsDown(level, x, y int) bool {
	c := e.levels[level].At(x, y)
	return c.HasDown || c.Walls.Has(maze.Down)
}

// placeLadder serves one connection of hole cell hc on level. A down ladder
// stands on the level below and climbs through this level's floor hole; an
// up ladder stands on this level.
func (e *emitter) placeLadder(hc maze.HoleCell, level int, dir maze.Direction) {
	p := e.cfg.Params
	mount := level
	if dir == maze.Down {
		mount = level - 1
	}
	y0, y1 := p.LadderSpan(level, dir)

	pl := Placement{Level: level, X: hc.X, Y: hc.Y, Dir: dir, Wall: maze.NoDir}
	opts := WallOptions(p, e.levels[mount], hc.X, hc.Y)
	var best WallOption
	for _, opt := range opts {
		vx, vz, _, _ := p.FaceColumn(hc.X, hc.Y, opt.Dir)
		score := 0
		for y := y0; y <= y1; y++ {
			if e.store.IsSolid(geometry.Vec3{X: vx + opt.DX, Y: y, Z: vz + opt.DZ}) {
				score++
			}
		}
		if score > pl.Score {
			pl.Score, best = score, opt
		}
	}

	if pl.Score > 0 {
		vx, vz, _, _ := p.FaceColumn(hc.X, hc.Y, best.Dir)
		pl.Wall = best.Dir
		pl.Column = geometry.Box{Min: geometry.Vec3{X: vx, Y: y0, Z: vz}, Max: geometry.Vec3{X: vx, Y: y1, Z: vz}}
		e.hang(pl.Column, best.Facing)
		e.stats.WallMounts++
	} else {
		reason := "no interior wall without a passage"
		if len(opts) > 0 {
			reason = "no solid material along the span"
		}
		e.add(Comment("no mounting wall for %s ladder at level %d cell (%d,%d): %s", dir, level, hc.X, hc.Y, reason))
		e.fallback(&pl, mount, y0, y1)
		e.stats.Fallbacks++
	}
	e.stats.Ladders++
	e.placements = append(e.placements, pl)
}

// headroom is the clear height kept in a passage when a support column has
// to stand in it.
const headroom = 2

// fallback builds a one voxel support column beside the cell centre and
// hangs the ladder on it. Sides are tried north, south, west, east; a side
// must keep the column clear of the entrance and exit. Sides with a wall come
// first, then sides where the column still lies inside the cell's walkway.
// A column never fills a passage across its walkable height: if every
// neighbour of the centre is an open passage (walk size 1), the column stops
// headroom voxels above the floor and the ladder below it hangs unbacked.
func (e *emitter) fallback(pl *Placement, mount, y0, y1 int) {
	p := e.cfg.Params
	cx, cz := p.CellCenter(pl.X, pl.Y)
	cell := e.levels[mount].At(pl.X, pl.Y)
	walk := p.PathFootprint(pl.X, pl.Y, 0)
	order := [...]maze.Direction{maze.North, maze.South, maze.West, maze.East}

	offGaps := func(d maze.Direction) bool {
		s := supportColumn(cx, cz, y0, y1, d)
		return !s.Intersects(e.in.Gap) && !s.Intersects(e.out.Gap)
	}
	inWalkway := func(d maze.Direction) bool {
		dx, dz, _ := d.Offset()
		return walk.Contains(geometry.Vec3{X: cx + dx, Y: 0, Z: cz + dz})
	}
	pick := func(ok func(maze.Direction) bool) maze.Direction {
		for _, d := range order {
			if ok(d) && offGaps(d) {
				return d
			}
		}
		return maze.NoDir
	}

	trimmed := false
	side := pick(func(d maze.Direction) bool { return !cell.Walls.Has(d) })
	if side == maze.NoDir {
		side = pick(inWalkway)
	}
	if side == maze.NoDir {
		trimmed = true
		side = pick(func(maze.Direction) bool { return true })
		if side == maze.NoDir {
			side = maze.North
		}
	}

	pl.Fallback = true
	pl.Wall = side
	pl.Support = supportColumn(cx, cz, y0, y1, side)
	pl.Column = geometry.Box{Min: geometry.Vec3{X: cx, Y: y0, Z: cz}, Max: geometry.Vec3{X: cx, Y: y1, Z: cz}}

	if trimmed {
		pl.Support.Min.Y = max(pl.Support.Min.Y, p.WallBottomY(mount)+headroom)
		e.add(Comment("cell (%d,%d) is open on every side: support pillar %s starts %d above the floor to keep the passage walkable, lower ladder blocks are unbacked",
			pl.X, pl.Y, side, headroom))
	}
	e.add(Comment("building support pillar %s of cell (%d,%d) centre", side, pl.X, pl.Y))
	if !pl.Support.Empty() {
		e.add(Fill(pl.Support, e.cfg.Block))
	}
	e.hang(pl.Column, FacingFor(side))
}

func supportColumn(cx, cz, y0, y1 int, side maze.Direction) geometry.Box {
	dx, dz, _ := side.Offset()
	return geometry.Box{
		Min: geometry.Vec3{X: cx + dx, Y: y0, Z: cz + dz},
		Max: geometry.Vec3{X: cx + dx, Y: y1, Z: cz + dz},
	}
}

func (e *emitter) hang(col geometry.Box, facing int) {
	data := strconv.Itoa(facing)
	for y := col.Min.Y; y <= col.Max.Y; y++ {
		e.add(Setblock(geometry.Vec3{X: col.Min.X, Y: y, Z: col.Min.Z}, LadderBlock, data))
		e.stats.LadderBlocks++
	}
}
