package geometry

import "voxelmaze.ai/internal/maze"

// Opening is the voxel position of an entrance or exit on the perimeter.
type Opening struct {
	Level int
	Side  maze.Direction
	// Voxel is the opening on the outermost voxel row of the wall, at the
	// bottom of the wall span.
	Voxel Vec3
	// Gap is the full cut through the wall band, all wall heights included.
	Gap Box
}

// PortalOpening maps a maze portal onto the perimeter of a w×h level. The
// opening is centred on the portal cell's walkway with walk/2.
func (p Params) PortalOpening(portal maze.Portal, w, h int) Opening {
	tw, th := p.TotalWidth(w), p.TotalWidth(h)
	cx, cz := p.CellCenter(portal.Col, portal.Row)
	y0, y1 := p.WallBottomY(portal.Level), p.WallTopY(portal.Level)

	o := Opening{Level: portal.Level, Side: portal.Side}
	switch portal.Side {
	case maze.West:
		o.Voxel = Vec3{0, y0, cz}
		o.Gap = Box{Min: Vec3{0, y0, cz}, Max: Vec3{p.WallSize - 1, y1, cz}}
	case maze.East:
		o.Voxel = Vec3{tw - 1, y0, cz}
		o.Gap = Box{Min: Vec3{tw - p.WallSize, y0, cz}, Max: Vec3{tw - 1, y1, cz}}
	case maze.North:
		o.Voxel = Vec3{cx, y0, 0}
		o.Gap = Box{Min: Vec3{cx, y0, 0}, Max: Vec3{cx, y1, p.WallSize - 1}}
	case maze.South:
		o.Voxel = Vec3{cx, y0, th - 1}
		o.Gap = Box{Min: Vec3{cx, y0, th - p.WallSize}, Max: Vec3{cx, y1, th - 1}}
	}
	return o
}

// Openings returns the entrance and exit openings for a maze of this shape.
func (p Params) Openings(w, h, levels int) (entrance, exit Opening) {
	in, out := maze.PortalsFor(w, h, levels)
	return p.PortalOpening(in, w, h), p.PortalOpening(out, w, h)
}

// PerimeterWalls returns the four outer wall bands of a level, each split
// around the single column or row of any opening on that side.
func (p Params) PerimeterWalls(level, w, h int, openings ...Opening) []Box {
	tw, th := p.TotalWidth(w), p.TotalWidth(h)
	y0, y1 := p.WallBottomY(level), p.WallTopY(level)

	sides := []struct {
		side maze.Direction
		box  Box
	}{
		{maze.North, Box{Min: Vec3{0, y0, 0}, Max: Vec3{tw - 1, y1, p.WallSize - 1}}},
		{maze.South, Box{Min: Vec3{0, y0, th - p.WallSize}, Max: Vec3{tw - 1, y1, th - 1}}},
		{maze.West, Box{Min: Vec3{0, y0, 0}, Max: Vec3{p.WallSize - 1, y1, th - 1}}},
		{maze.East, Box{Min: Vec3{tw - p.WallSize, y0, 0}, Max: Vec3{tw - 1, y1, th - 1}}},
	}

	var out []Box
	for _, s := range sides {
		gap, ok := openingOn(level, s.side, openings)
		if !ok {
			out = append(out, s.box)
			continue
		}
		for _, b := range splitAround(s.box, s.side, gap) {
			if !b.Empty() {
				out = append(out, b)
			}
		}
	}
	return out
}

func openingOn(level int, side maze.Direction, openings []Opening) (Opening, bool) {
	for _, o := range openings {
		if o.Level == level && o.Side == side {
			return o, true
		}
	}
	return Opening{}, false
}

func splitAround(b Box, side maze.Direction, o Opening) []Box {
	before, after := b, b
	if side == maze.North || side == maze.South {
		before.Max.X = o.Voxel.X - 1
		after.Min.X = o.Voxel.X + 1
	} else {
		before.Max.Z = o.Voxel.Z - 1
		after.Min.Z = o.Voxel.Z + 1
	}
	return []Box{before, after}
}
