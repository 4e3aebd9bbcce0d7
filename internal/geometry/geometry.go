// Package geometry maps maze cells onto voxel space.
//
// Everything here is a pure function of Params. The wall emitter and the
// ladder solver both go through these functions so their coordinates cannot
// drift apart.
package geometry

import (
	"voxelmaze.ai/internal/maze"
)

type Params struct {
	WallSize   int
	WalkSize   int
	WallHeight int
}

type Vec3 struct {
	X, Y, Z int
}

// Box is an axis-aligned voxel range with inclusive bounds.
type Box struct {
	Min Vec3
	Max Vec3
}

func (b Box) Empty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

func (b Box) Contains(v Vec3) bool {
	return v.X >= b.Min.X && v.X <= b.Max.X &&
		v.Y >= b.Min.Y && v.Y <= b.Max.Y &&
		v.Z >= b.Min.Z && v.Z <= b.Max.Z
}

func (b Box) Intersects(o Box) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y &&
		b.Min.Z <= o.Max.Z && o.Min.Z <= b.Max.Z
}

func (b Box) Volume() int {
	if b.Empty() {
		return 0
	}
	return (b.Max.X - b.Min.X + 1) * (b.Max.Y - b.Min.Y + 1) * (b.Max.Z - b.Min.Z + 1)
}

func (p Params) stride() int { return p.WalkSize + p.WallSize }

// TotalWidth is the voxel extent of n cells: n walkways plus n+1 wall bands.
// Heights (the z extent) use the same formula.
func (p Params) TotalWidth(n int) int {
	return n*p.WalkSize + (n+1)*p.WallSize
}

// PathStart is the first voxel of cell i's walkway along one axis.
func (p Params) PathStart(i int) int { return i*p.stride() + p.WallSize }

// BandStart is the first voxel of wall band b; band 0 is the outer wall
// before cell 0 and band n the outer wall after cell n-1.
func (p Params) BandStart(b int) int { return b * p.stride() }

func (p Params) LevelBase(level int) int { return level * (p.WallHeight + 1) }

func (p Params) FloorY(level int) int { return p.LevelBase(level) }

func (p Params) WallBottomY(level int) int { return p.LevelBase(level) + 1 }

func (p Params) WallTopY(level int) int { return p.LevelBase(level) + p.WallHeight }

// RoofY sits one voxel above the last level's wall tops.
func (p Params) RoofY(levels int) int { return p.WallTopY(levels-1) + 1 }

// CellCenter returns the walkway centre column of cell (x, y).
func (p Params) CellCenter(x, y int) (vx, vz int) {
	return p.PathStart(x) + p.WalkSize/2, p.PathStart(y) + p.WalkSize/2
}

// LevelBox is the whole footprint of a level from its floor to its wall tops.
func (p Params) LevelBox(level, w, h int) Box {
	return Box{
		Min: Vec3{0, p.FloorY(level), 0},
		Max: Vec3{p.TotalWidth(w) - 1, p.WallTopY(level), p.TotalWidth(h) - 1},
	}
}

func (p Params) FloorBox(level, w, h int) Box {
	y := p.FloorY(level)
	return Box{
		Min: Vec3{0, y, 0},
		Max: Vec3{p.TotalWidth(w) - 1, y, p.TotalWidth(h) - 1},
	}
}

func (p Params) RoofBox(levels, w, h int) Box {
	y := p.RoofY(levels)
	return Box{
		Min: Vec3{0, y, 0},
		Max: Vec3{p.TotalWidth(w) - 1, y, p.TotalWidth(h) - 1},
	}
}

// VerticalWall is the north-south running segment of band bx beside row y.
// Band bx separates cell bx-1 from cell bx.
func (p Params) VerticalWall(level, bx, y int) Box {
	x0, z0 := p.BandStart(bx), p.PathStart(y)
	return Box{
		Min: Vec3{x0, p.WallBottomY(level), z0},
		Max: Vec3{x0 + p.WallSize - 1, p.WallTopY(level), z0 + p.WalkSize - 1},
	}
}

// HorizontalWall is the west-east running segment of band bz beside column x.
func (p Params) HorizontalWall(level, x, bz int) Box {
	x0, z0 := p.PathStart(x), p.BandStart(bz)
	return Box{
		Min: Vec3{x0, p.WallBottomY(level), z0},
		Max: Vec3{x0 + p.WalkSize - 1, p.WallTopY(level), z0 + p.WallSize - 1},
	}
}

// Pillar is the intersection of bands bx and bz.
func (p Params) Pillar(level, bx, bz int) Box {
	x0, z0 := p.BandStart(bx), p.BandStart(bz)
	return Box{
		Min: Vec3{x0, p.WallBottomY(level), z0},
		Max: Vec3{x0 + p.WallSize - 1, p.WallTopY(level), z0 + p.WallSize - 1},
	}
}

// SideWall is the wall segment on side d of cell (x, y). Planar directions
// only; the result may be a slice of the outer perimeter.
func (p Params) SideWall(level, x, y int, d maze.Direction) Box {
	switch d {
	case maze.North:
		return p.HorizontalWall(level, x, y)
	case maze.South:
		return p.HorizontalWall(level, x, y+1)
	case maze.West:
		return p.VerticalWall(level, x, y)
	case maze.East:
		return p.VerticalWall(level, x+1, y)
	default:
		return Box{Min: Vec3{0, 0, 0}, Max: Vec3{-1, -1, -1}}
	}
}

// PathFootprint is the walkway of cell (x, y) at height yv.
func (p Params) PathFootprint(x, y, yv int) Box {
	x0, z0 := p.PathStart(x), p.PathStart(y)
	return Box{
		Min: Vec3{x0, yv, z0},
		Max: Vec3{x0 + p.WalkSize - 1, yv, z0 + p.WalkSize - 1},
	}
}

// FaceColumn returns the walkway column directly in front of the wall on
// side d of cell (x, y), centred along the wall, and the unit step (dx, dz)
// from that column back into the wall.
func (p Params) FaceColumn(x, y int, d maze.Direction) (vx, vz, dx, dz int) {
	cx, cz := p.CellCenter(x, y)
	wall := p.SideWall(0, x, y, d)
	switch d {
	case maze.North:
		return cx, wall.Max.Z + 1, 0, -1
	case maze.South:
		return cx, wall.Min.Z - 1, 0, 1
	case maze.West:
		return wall.Max.X + 1, cz, -1, 0
	case maze.East:
		return wall.Min.X - 1, cz, 1, 0
	default:
		return cx, cz, 0, 0
	}
}

// LadderSpan is the vertical range a ladder needs at a hole on level.
// Going up it covers this level's wall height; going down it covers the
// level below plus the hole punched through this level's floor.
func (p Params) LadderSpan(level int, d maze.Direction) (y0, y1 int) {
	floor := p.FloorY(level)
	if d == maze.Down {
		return floor - p.WallHeight, floor
	}
	return floor + 1, floor + p.WallHeight
}
