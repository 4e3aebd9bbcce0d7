package maze

import (
	"math/rand"

	"github.com/zyedidia/generic/mapset"
)

// HoleCell is a cell hosting a vertical connection on one level.
type HoleCell struct {
	X       int
	Y       int
	HasUp   bool
	HasDown bool
}

// HoleCells lists the cells of lm that connect to the level above or below.
// A carved UP/DOWN passage and an injected HasUp/HasDown flag count the same;
// connections pointing past the top or bottom level are ignored.
func HoleCells(lm LevelMaze, levelsTotal int) []HoleCell {
	var out []HoleCell
	for y := 0; y < lm.Height; y++ {
		for x := 0; x < lm.Width; x++ {
			c := lm.Cells[y][x]
			up := (c.HasUp || c.Walls.Has(Up)) && lm.Level < levelsTotal-1
			down := (c.HasDown || c.Walls.Has(Down)) && lm.Level > 0
			if up || down {
				out = append(out, HoleCell{X: x, Y: y, HasUp: up, HasDown: down})
			}
		}
	}
	return out
}

// InjectHoles joins independently carved 2D levels. The interior cells (the
// outer ring is skipped so holes never sit on the entrance or exit) are
// shuffled once; each adjacent level pair then takes up to holesPerLevel
// distinct cells from that pool, marking HasUp below and HasDown above.
// Consecutive pairs read the pool from staggered offsets, wrapping around
// when it runs out.
//
// This writes flags only. It does not carve, so it gives none of the
// reachability guarantees of a 3D carve beyond what each level already has.
// It returns the number of connections injected.
func InjectHoles(levels []LevelMaze, holesPerLevel int, rng *rand.Rand) int {
	if len(levels) < 2 || holesPerLevel <= 0 {
		return 0
	}
	w, h := levels[0].Width, levels[0].Height
	pool := make([][2]int, 0, max(0, (w-2)*(h-2)))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			pool = append(pool, [2]int{x, y})
		}
	}
	if len(pool) == 0 {
		return 0
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	take := min(holesPerLevel, len(pool))
	injected := 0
	for pair := 0; pair+1 < len(levels); pair++ {
		lower, upper := levels[pair], levels[pair+1]
		used := mapset.New[[2]int]()
		for i := 0; used.Size() < take; i++ {
			p := pool[(pair*take+i)%len(pool)]
			if used.Has(p) {
				continue
			}
			used.Put(p)
			lower.Cells[p[1]][p[0]].HasUp = true
			upper.Cells[p[1]][p[0]].HasDown = true
			injected++
		}
	}
	return injected
}
