package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"voxelmaze.ai/internal/catalogs"
	"voxelmaze.ai/internal/persistence/indexdb"
	persistlog "voxelmaze.ai/internal/persistence/log"
	"voxelmaze.ai/internal/pipeline"
	"voxelmaze.ai/internal/tuning"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to maze.yaml (optional)")
		configDir  = flag.String("configs", "./configs", "config directory (blocks.json override)")
		outPath    = flag.String("out", "-", "commands output file (- for stdout)")
		dataDir    = flag.String("data", "", "data directory for run log, snapshots and index (empty disables)")
		disableDB  = flag.Bool("disable_db", false, "skip the run index even when -data is set")
		snapPath   = flag.String("snapshot", "", "write the maze snapshot here (default: <data>/snapshots/<run>.snap.zst)")
		quiet      = flag.Bool("q", false, "only log errors")

		seed          = flag.Int64("seed", 0, "rng seed (0 picks a time based seed)")
		width         = flag.Int("width", 0, "cells per row")
		height        = flag.Int("height", 0, "rows per level")
		levels        = flag.Int("levels", 0, "number of levels")
		wallSize      = flag.Int("wall_size", 0, "wall thickness in voxels")
		walkSize      = flag.Int("walk_size", 0, "corridor width in voxels")
		wallHeight    = flag.Int("wall_height", 0, "wall height in voxels")
		block         = flag.String("block", "", "wall/floor block id")
		mode          = flag.String("mode", "", "2d or 3d")
		holesPerLevel = flag.Int("holes_per_level", 0, "2d mode: connections per level pair")
		holes         = flag.Bool("holes", true, "connect levels with floor holes")
		ladders       = flag.Bool("ladders", true, "place ladders under the floor holes")
		roof          = flag.Bool("roof", false, "cover the top level")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[mazegen] ", log.LstdFlags|log.Lmicroseconds)

	cfg := tuning.Defaults()
	if p := strings.TrimSpace(*configPath); p != "" {
		c, err := tuning.Load(p)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		cfg = c
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *seed
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "levels":
			cfg.Levels = *levels
		case "wall_size":
			cfg.WallSize = *wallSize
		case "walk_size":
			cfg.WalkSize = *walkSize
		case "wall_height":
			cfg.WallHeight = *wallHeight
		case "block":
			cfg.Block = *block
		case "mode":
			cfg.Mode = *mode
		case "holes_per_level":
			cfg.HolesPerLevel = *holesPerLevel
		case "holes":
			cfg.GenerateHoles = *holes
		case "ladders":
			cfg.GenerateLadders = *ladders
		case "roof":
			cfg.AddRoof = *roof
		}
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	runner := &pipeline.Runner{Catalogs: cats}
	if !*quiet {
		runner.Log = logger
	}
	if dir := strings.TrimSpace(*dataDir); dir != "" {
		runLog := persistlog.NewRunLogger(dir)
		defer runLog.Close()
		runner.RunLog = runLog
		runner.SnapshotDir = filepath.Join(dir, "snapshots")
		if !*disableDB {
			idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index", "runs.sqlite"))
			if err != nil {
				logger.Fatalf("open index: %v", err)
			}
			defer idx.Close()
			runner.Index = idx
		}
	}

	res, err := runner.Generate(context.Background(), cfg, "cli")
	if err != nil {
		logger.Fatalf("generate: %v", err)
	}

	if *snapPath != "" {
		if err := writeSnapshot(*snapPath, res); err != nil {
			logger.Fatalf("snapshot: %v", err)
		}
	}

	if err := writeCommands(*outPath, res); err != nil {
		logger.Fatalf("write commands: %v", err)
	}
	if !*quiet {
		logger.Printf("run %s seed=%d commands=%d digest=%s", res.RunID, res.Seed, res.Stats.Commands, res.Digest)
	}
}

func writeCommands(path string, res *pipeline.Result) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriterSize(w, 64*1024)
	for _, c := range res.Commands {
		if _, err := fmt.Fprintln(bw, c.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
