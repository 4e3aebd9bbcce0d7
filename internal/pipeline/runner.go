package pipeline

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"voxelmaze.ai/internal/catalogs"
	"voxelmaze.ai/internal/metrics"
	"voxelmaze.ai/internal/persistence/indexdb"
	plog "voxelmaze.ai/internal/persistence/log"
	"voxelmaze.ai/internal/persistence/snapshot"
	"voxelmaze.ai/internal/protocol"
	"voxelmaze.ai/internal/tuning"
)

// Runner wraps Run with the side outputs of a long lived process: metrics,
// the run log, the SQLite index and snapshot files. Every field is optional.
type Runner struct {
	Log         *log.Logger
	Catalogs    *catalogs.Catalogs
	Metrics     *metrics.Metrics
	RunLog      *plog.RunLogger
	Index       *indexdb.SQLiteIndex
	SnapshotDir string
}

func (r *Runner) Generate(ctx context.Context, cfg tuning.Config, source string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := Run(cfg, Options{Catalogs: r.Catalogs})
	if err != nil {
		r.Metrics.ObserveError(protocol.CodeFor(err))
		r.logf("%s: generation failed: %v", source, err)
		return nil, err
	}
	r.record(res, source)
	return res, nil
}

func (r *Runner) record(res *Result, source string) {
	cfg := res.Config
	r.Metrics.ObserveRun(cfg.MazeMode().String(), res.Stats.Commands, res.Stats.Ladders, res.Stats.Fallbacks, res.Duration)
	r.logf("%s: run %s seed=%d mode=%s size=%dx%dx%d commands=%d ladders=%d fallbacks=%d took=%s",
		source, res.RunID, res.Seed, cfg.MazeMode(), cfg.Width, cfg.Height, cfg.Levels,
		res.Stats.Commands, res.Stats.Ladders, res.Stats.Fallbacks, res.Duration)
	if res.Stats.Unreachable > 0 {
		r.logf("%s: run %s has %d cells unreachable from the entrance", source, res.RunID, res.Stats.Unreachable)
	}

	if r.SnapshotDir != "" {
		path := filepath.Join(r.SnapshotDir, res.RunID+".snap.zst")
		tick := uint64(res.StartedAt.UnixMilli())
		snap := snapshot.New(res.RunID, tick, res.Seed, cfg, res.Levels)
		snap.CommandsDigest = res.Digest
		snap.CommandCount = len(res.Commands)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			r.logf("%s: snapshot %s: %v", source, path, err)
		} else if r.Index != nil {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			r.Index.RecordSnapshot(res.RunID, path, tick)
		}
	}

	if r.RunLog != nil {
		if err := r.RunLog.WriteRun(plog.RunEntry{
			RunID:      res.RunID,
			Time:       res.StartedAt.UTC().Format(time.RFC3339Nano),
			Source:     source,
			Seed:       res.Seed,
			Mode:       cfg.MazeMode().String(),
			Width:      cfg.Width,
			Height:     cfg.Height,
			Levels:     cfg.Levels,
			Commands:   res.Stats.Commands,
			Ladders:    res.Stats.Ladders,
			Fallbacks:  res.Stats.Fallbacks,
			Holes:      res.Stats.Holes,
			Digest:     res.Digest,
			DurationMs: res.Duration.Milliseconds(),
		}); err != nil {
			r.logf("%s: run log: %v", source, err)
		}
	}

	r.Index.RecordRun(indexdb.RunRow{
		RunID:      res.RunID,
		RecordedAt: res.StartedAt.UTC().Format(time.RFC3339Nano),
		Seed:       res.Seed,
		Mode:       cfg.MazeMode().String(),
		Width:      cfg.Width,
		Height:     cfg.Height,
		Levels:     cfg.Levels,
		Commands:   res.Stats.Commands,
		Ladders:    res.Stats.Ladders,
		Fallbacks:  res.Stats.Fallbacks,
		Holes:      res.Stats.Holes,
		Digest:     res.Digest,
	})
}

func (r *Runner) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Printf(format, args...)
	}
}
