// Package pipeline runs one maze generation end to end: validate the config,
// seed the RNG, carve the grid, pick the vertical connections and emit the
// command stream.
package pipeline

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"voxelmaze.ai/internal/catalogs"
	"voxelmaze.ai/internal/emit"
	"voxelmaze.ai/internal/maze"
	"voxelmaze.ai/internal/tuning"
)

type Options struct {
	// Catalogs supplies block solidity. Nil uses the embedded catalog.
	Catalogs *catalogs.Catalogs
	// RunID overrides the generated run id.
	RunID string
	Now   func() time.Time
}

type Stats struct {
	Commands     int `json:"commands"`
	Ladders      int `json:"ladders"`
	LadderBlocks int `json:"ladder_blocks"`
	WallMounts   int `json:"wall_mounts"`
	Fallbacks    int `json:"fallbacks"`
	Holes        int `json:"holes"`
	Unreachable  int `json:"unreachable"`
}

// Result is the immutable output of one run.
type Result struct {
	RunID  string
	Seed   int64
	Config tuning.Config

	// Grid is nil for results rebuilt from stored level mazes.
	Grid       *maze.Grid
	Levels     []maze.LevelMaze
	Holes      [][]maze.HoleCell
	Commands   []emit.Command
	Placements []emit.Placement
	Stats      Stats
	Digest     string

	StartedAt time.Time
	Duration  time.Duration
}

// Text is the newline joined command artifact.
func (r *Result) Text() string { return emit.Join(r.Commands) }

// Run generates a maze from cfg. A zero cfg.Seed picks a time based seed,
// which is reported in the result.
func Run(cfg tuning.Config, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	start := now()

	seed := cfg.Seed
	if seed == 0 {
		seed = start.UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	grid, err := maze.Generate(cfg.Width, cfg.Height, cfg.Levels, cfg.MazeMode(), rng)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	levels := grid.LevelMazes()

	switch {
	case !cfg.GenerateHoles:
		stripVertical(levels)
	case cfg.MazeMode() == maze.Mode2D:
		maze.InjectHoles(levels, cfg.HolesPerLevel, rng)
	}

	res, err := build(cfg, levels, opts)
	if err != nil {
		return nil, err
	}
	res.Seed = seed
	res.Grid = grid
	res.StartedAt = start
	res.Duration = now().Sub(start)
	return res, nil
}

// Rebuild emits the command stream for stored level mazes, as taken from a
// snapshot. The output is identical to the run that produced them.
func Rebuild(cfg tuning.Config, seed int64, levels []maze.LevelMaze, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(levels) != cfg.Levels || levels[0].Width != cfg.Width || levels[0].Height != cfg.Height {
		return nil, fmt.Errorf("%w: stored maze does not match config", tuning.ErrInvalidConfig)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	res, err := build(cfg, levels, opts)
	if err != nil {
		return nil, err
	}
	res.Seed = seed
	res.StartedAt = start
	res.Duration = now().Sub(start)
	return res, nil
}

func build(cfg tuning.Config, levels []maze.LevelMaze, opts Options) (*Result, error) {
	cats := opts.Catalogs
	if cats == nil {
		cats = catalogs.Default()
	}
	out, err := emit.Emit(levels, emit.Config{
		Params:          cfg.Params(),
		Block:           cfg.Block,
		AddRoof:         cfg.AddRoof,
		GenerateLadders: cfg.GenerateLadders,
		Solid:           &cats.Blocks,
	})
	if err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}

	res := &Result{
		RunID:      opts.RunID,
		Config:     cfg,
		Levels:     levels,
		Commands:   out.Commands,
		Placements: out.Placements,
		Digest:     emit.Digest(out.Commands),
	}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	for _, lm := range levels {
		hc := maze.HoleCells(lm, len(levels))
		res.Holes = append(res.Holes, hc)
		for _, h := range hc {
			if h.HasDown {
				res.Stats.Holes++
			}
		}
	}
	res.Stats.Commands = out.Stats.Commands
	res.Stats.Ladders = out.Stats.Ladders
	res.Stats.LadderBlocks = out.Stats.LadderBlocks
	res.Stats.WallMounts = out.Stats.WallMounts
	res.Stats.Fallbacks = out.Stats.Fallbacks
	res.Stats.Unreachable = maze.Unreachable(levels)
	return res, nil
}

// stripVertical drops every vertical passage from the level views, leaving
// the levels unconnected.
func stripVertical(levels []maze.LevelMaze) {
	for _, lm := range levels {
		for y := range lm.Cells {
			for x := range lm.Cells[y] {
				c := &lm.Cells[y][x]
				c.Walls &^= maze.UpBit | maze.DownBit
				c.HasUp, c.HasDown = false, false
			}
		}
	}
}
