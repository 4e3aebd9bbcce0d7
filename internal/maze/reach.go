package maze

import "github.com/zyedidia/generic/mapset"

// Reachable returns every cell reachable from start across the level views,
// following passage bits and injected hole flags.
func Reachable(levels []LevelMaze, start Coord) mapset.Set[Coord] {
	seen := mapset.New[Coord]()
	if len(levels) == 0 {
		return seen
	}
	inBounds := func(c Coord) bool {
		return c.Level >= 0 && c.Level < len(levels) && levels[c.Level].InBounds(c.Col, c.Row)
	}
	if !inBounds(start) {
		return seen
	}

	queue := []Coord{start}
	seen.Put(start)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		cell := levels[cur.Level].At(cur.Col, cur.Row)

		for _, d := range AllDirections() {
			open := cell.Walls.Has(d) ||
				(d == Up && cell.HasUp) ||
				(d == Down && cell.HasDown)
			if !open {
				continue
			}
			dx, dy, dz := d.Offset()
			next := Coord{Level: cur.Level + dz, Row: cur.Row + dy, Col: cur.Col + dx}
			if !inBounds(next) || seen.Has(next) {
				continue
			}
			seen.Put(next)
			queue = append(queue, next)
		}
	}
	return seen
}

// Unreachable counts cells that cannot be reached from the entrance.
func Unreachable(levels []LevelMaze) int {
	if len(levels) == 0 {
		return 0
	}
	total := 0
	for _, lm := range levels {
		total += lm.Width * lm.Height
	}
	entrance, _ := PortalsFor(levels[0].Width, levels[0].Height, len(levels))
	return total - Reachable(levels, entrance.Coord).Size()
}
