// Package emit turns level mazes into an ordered fill/setblock command stream.
//
// Every command is also applied to an in-memory voxel store as it is
// emitted, so the ladder pass can ask what has actually been built.
package emit

import (
	"errors"
	"fmt"

	"voxelmaze.ai/internal/catalogs"
	"voxelmaze.ai/internal/geometry"
	"voxelmaze.ai/internal/maze"
	"voxelmaze.ai/internal/voxel"
)

var ErrInvalidInput = errors.New("invalid emit input")

const (
	AirBlock    = "air"
	LadderBlock = "ladder"
)

type Config struct {
	geometry.Params

	Block           string
	AddRoof         bool
	GenerateLadders bool

	// Solid classifies blocks for ladder scoring. Nil uses the embedded
	// block catalog.
	Solid voxel.Solidity
}

type Stats struct {
	Commands     int `json:"commands"`
	Ladders      int `json:"ladders"`
	LadderBlocks int `json:"ladder_blocks"`
	WallMounts   int `json:"wall_mounts"`
	Fallbacks    int `json:"fallbacks"`
	FloorHoles   int `json:"floor_holes"`
}

type Output struct {
	Commands   []Command
	Placements []Placement
	Stats      Stats
	// Store holds the construction state after the last command.
	Store *voxel.Store
}

type emitter struct {
	cfg    Config
	levels []maze.LevelMaze
	w, h   int
	store  *voxel.Store
	in     geometry.Opening
	out    geometry.Opening

	cmds       []Command
	placements []Placement
	stats      Stats
}

// Emit builds the command stream for levels, bottom level first.
func Emit(levels []maze.LevelMaze, cfg Config) (*Output, error) {
	if err := validate(levels, cfg); err != nil {
		return nil, err
	}
	solid := cfg.Solid
	if solid == nil {
		solid = &catalogs.Default().Blocks
	}
	e := &emitter{
		cfg:    cfg,
		levels: levels,
		w:      levels[0].Width,
		h:      levels[0].Height,
		store:  voxel.NewStore(solid),
	}
	e.in, e.out = cfg.Openings(e.w, e.h, len(levels))

	for _, lm := range levels {
		e.level(lm)
	}
	if cfg.AddRoof {
		e.add(Comment("roof"))
		e.add(Fill(cfg.RoofBox(len(levels), e.w, e.h), cfg.Block))
	}
	if cfg.GenerateLadders {
		e.ladders()
	}

	e.stats.Commands = len(e.cmds)
	return &Output{
		Commands:   e.cmds,
		Placements: e.placements,
		Stats:      e.stats,
		Store:      e.store,
	}, nil
}

func validate(levels []maze.LevelMaze, cfg Config) error {
	if len(levels) == 0 {
		return fmt.Errorf("no levels: %w", ErrInvalidInput)
	}
	if cfg.WallSize <= 0 || cfg.WalkSize <= 0 || cfg.WallHeight <= 0 {
		return fmt.Errorf("wall_size=%d walk_size=%d wall_height=%d: %w",
			cfg.WallSize, cfg.WalkSize, cfg.WallHeight, ErrInvalidInput)
	}
	if cfg.Block == "" {
		return fmt.Errorf("empty block: %w", ErrInvalidInput)
	}
	w, h := levels[0].Width, levels[0].Height
	for i, lm := range levels {
		if lm.Width != w || lm.Height != h || lm.Width <= 0 || lm.Height <= 0 {
			return fmt.Errorf("level %d is %dx%d, want %dx%d: %w", i, lm.Width, lm.Height, w, h, ErrInvalidInput)
		}
		if lm.Level != i {
			return fmt.Errorf("level %d labelled %d: %w", i, lm.Level, ErrInvalidInput)
		}
	}
	return nil
}

func (e *emitter) add(c Command) {
	e.cmds = append(e.cmds, c)
	apply(e.store, c)
}

func (e *emitter) level(lm maze.LevelMaze) {
	p, L, block := e.cfg.Params, lm.Level, e.cfg.Block

	e.add(Comment("level %d", L))
	e.add(Fill(p.LevelBox(L, e.w, e.h), AirBlock))
	e.add(Fill(p.FloorBox(L, e.w, e.h), block))

	// North-south segments on the interior bands.
	for y := 0; y < e.h; y++ {
		for bx := 1; bx < e.w; bx++ {
			if !lm.At(bx-1, y).Walls.Has(maze.East) {
				e.add(Fill(p.VerticalWall(L, bx, y), block))
			}
		}
	}
	// West-east segments.
	for bz := 1; bz < e.h; bz++ {
		for x := 0; x < e.w; x++ {
			if !lm.At(x, bz-1).Walls.Has(maze.South) {
				e.add(Fill(p.HorizontalWall(L, x, bz), block))
			}
		}
	}
	for bz := 0; bz <= e.h; bz++ {
		for bx := 0; bx <= e.w; bx++ {
			e.add(Fill(p.Pillar(L, bx, bz), block))
		}
	}
	for _, b := range p.PerimeterWalls(L, e.w, e.h, e.in, e.out) {
		e.add(Fill(b, block))
	}

	// Holes are cut under entrance and exit cells too. A 3D carve may route
	// its only vertical passage through them (a 1x1 stack has no other cell);
	// injected 2D holes already keep to the interior.
	if L > 0 {
		for _, hc := range maze.HoleCells(lm, len(e.levels)) {
			if !hc.HasDown {
				continue
			}
			e.add(Fill(p.PathFootprint(hc.X, hc.Y, p.FloorY(L)), AirBlock))
			e.stats.FloorHoles++
		}
	}

	if L == e.in.Level {
		e.add(Fill(e.in.Gap, AirBlock))
	}
	if L == e.out.Level {
		e.add(Fill(e.out.Gap, AirBlock))
	}
}
