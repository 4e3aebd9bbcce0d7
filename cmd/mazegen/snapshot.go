package main

import (
	"voxelmaze.ai/internal/persistence/snapshot"
	"voxelmaze.ai/internal/pipeline"
)

func writeSnapshot(path string, res *pipeline.Result) error {
	snap := snapshot.New(res.RunID, uint64(res.StartedAt.UnixMilli()), res.Seed, res.Config, res.Levels)
	snap.CommandsDigest = res.Digest
	snap.CommandCount = len(res.Commands)
	return snapshot.WriteSnapshot(path, snap)
}
