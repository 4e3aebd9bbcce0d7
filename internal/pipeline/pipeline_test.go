package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelmaze.ai/internal/emit"
	"voxelmaze.ai/internal/maze"
	"voxelmaze.ai/internal/metrics"
	"voxelmaze.ai/internal/persistence/indexdb"
	plog "voxelmaze.ai/internal/persistence/log"
	"voxelmaze.ai/internal/persistence/snapshot"
	"voxelmaze.ai/internal/tuning"
)

func small(w, h, levels int, seed int64) tuning.Config {
	c := tuning.Defaults()
	c.Width, c.Height, c.Levels, c.Seed = w, h, levels, seed
	return c
}

func TestRun_SameSeedSameOutput(t *testing.T) {
	cfg := small(6, 5, 3, 1234)
	a, err := Run(cfg, Options{})
	require.NoError(t, err)
	b, err := Run(cfg, Options{})
	require.NoError(t, err)

	assert.Equal(t, int64(1234), a.Seed)
	assert.Equal(t, a.Digest, b.Digest)
	assert.Equal(t, a.Text(), b.Text())
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Zero(t, a.Stats.Unreachable)
	assert.Equal(t, len(a.Commands), a.Stats.Commands)

	cfg.Seed = 1235
	c, err := Run(cfg, Options{})
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest, c.Digest)
}

func TestRun_ZeroSeedUsesClock(t *testing.T) {
	at := time.Unix(1700000000, 42)
	res, err := Run(small(3, 3, 1, 0), Options{Now: func() time.Time { return at }, RunID: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, at.UnixNano(), res.Seed)
	assert.Equal(t, "fixed", res.RunID)
	assert.Equal(t, at, res.StartedAt)
}

func TestRun_RejectsInvalidConfig(t *testing.T) {
	cfg := small(0, 3, 1, 1)
	_, err := Run(cfg, Options{})
	assert.True(t, errors.Is(err, tuning.ErrInvalidConfig), "err=%v", err)
}

func TestRun_SingleCellTwoLevels(t *testing.T) {
	cfg := small(1, 1, 2, 9)
	cfg.WallSize, cfg.WalkSize, cfg.WallHeight = 1, 1, 1
	res, err := Run(cfg, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Holes)
	assert.Equal(t, 1, res.Stats.Ladders)
	assert.Equal(t, 1, res.Stats.Fallbacks)
	assert.Equal(t, 2, res.Stats.LadderBlocks)
	assert.Zero(t, res.Stats.Unreachable)
	require.Len(t, res.Holes, 2)
	assert.Equal(t, []maze.HoleCell{{X: 0, Y: 0, HasUp: true}}, res.Holes[0])
	assert.Equal(t, []maze.HoleCell{{X: 0, Y: 0, HasDown: true}}, res.Holes[1])
}

func TestRun_2DInjectsHoles(t *testing.T) {
	cfg := small(5, 5, 3, 77)
	cfg.Mode = "2d"
	cfg.HolesPerLevel = 2
	res, err := Run(cfg, Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Stats.Holes)
	assert.Equal(t, 4, res.Stats.Ladders)
	for _, hc := range res.Holes {
		for _, h := range hc {
			assert.True(t, h.X > 0 && h.X < 4 && h.Y > 0 && h.Y < 4, "hole %+v on the outer ring", h)
		}
	}
}

func TestRun_WithoutHolesLevelsStayApart(t *testing.T) {
	cfg := small(4, 3, 3, 5)
	cfg.GenerateHoles = false
	res, err := Run(cfg, Options{})
	require.NoError(t, err)

	assert.Zero(t, res.Stats.Holes)
	assert.Zero(t, res.Stats.Ladders)
	assert.Equal(t, 2*4*3, res.Stats.Unreachable)
	for _, c := range res.Commands {
		assert.NotEqual(t, emit.LadderBlock, c.Block)
	}
}

func TestRebuild_ReproducesDigest(t *testing.T) {
	cfg := small(5, 4, 3, 321)
	cfg.AddRoof = true
	res, err := Run(cfg, Options{})
	require.NoError(t, err)

	snap := snapshot.New(res.RunID, 1, res.Seed, cfg, res.Levels)
	levels, err := snap.ToLevels()
	require.NoError(t, err)

	again, err := Rebuild(snap.Config, snap.Seed, levels, Options{})
	require.NoError(t, err)
	assert.Equal(t, res.Digest, again.Digest)
	assert.Equal(t, res.Stats, again.Stats)
	assert.Nil(t, again.Grid)

	other := cfg
	other.Width = 6
	_, err = Rebuild(other, snap.Seed, levels, Options{})
	assert.True(t, errors.Is(err, tuning.ErrInvalidConfig))
}

func TestRunner_RecordsSideOutputs(t *testing.T) {
	dir := t.TempDir()
	idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	runLog := plog.NewRunLogger(dir)

	r := &Runner{
		Metrics:     metrics.New(),
		RunLog:      runLog,
		Index:       idx,
		SnapshotDir: filepath.Join(dir, "snapshots"),
	}
	res, err := r.Generate(context.Background(), small(4, 4, 2, 8), "test")
	require.NoError(t, err)
	require.NoError(t, runLog.Close())
	require.NoError(t, idx.Close())

	snap, err := snapshot.ReadSnapshot(filepath.Join(dir, "snapshots", res.RunID+".snap.zst"))
	require.NoError(t, err)
	assert.Equal(t, res.Digest, snap.CommandsDigest)
	assert.Equal(t, len(res.Commands), snap.CommandCount)
	assert.Equal(t, res.Seed, snap.Seed)

	logs, err := filepath.Glob(filepath.Join(dir, "runs", "runs-*.jsonl.zst"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	idx, err = indexdb.OpenSQLite(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer idx.Close()
	rows, err := idx.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, res.RunID, rows[0].RunID)
	assert.Equal(t, res.Digest, rows[0].Digest)
	path, err := idx.SnapshotPath(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path), "path=%q", path)
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Runner{}).Generate(ctx, small(2, 2, 1, 1), "test")
	assert.ErrorIs(t, err, context.Canceled)
}
