package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxelmaze.ai/internal/catalogs"
	"voxelmaze.ai/internal/emit"
	"voxelmaze.ai/internal/geometry"
	persistlog "voxelmaze.ai/internal/persistence/log"
	"voxelmaze.ai/internal/persistence/snapshot"
	"voxelmaze.ai/internal/pipeline"
	"voxelmaze.ai/internal/voxel"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		runsDir   = flag.String("runs", "", "runs dir containing runs-*.jsonl.zst (optional)")
		configDir = flag.String("configs", "./configs", "config directory")
		outPath   = flag.String("out", "", "write the rebuilt commands here (optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	cfg := snap.Config
	fmt.Printf("snapshot v%d run=%s tick=%d seed=%d size=%dx%dx%d mode=%s commands=%d\n",
		snap.Header.Version, snap.Header.RunID, snap.Header.Tick, snap.Seed,
		snap.Width, snap.Height, len(snap.Levels), cfg.MazeMode(), snap.CommandCount)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	levels, err := snap.ToLevels()
	if err != nil {
		fmt.Fprintln(os.Stderr, "levels:", err)
		os.Exit(1)
	}
	res, err := pipeline.Rebuild(cfg, snap.Seed, levels, pipeline.Options{Catalogs: cats, RunID: snap.Header.RunID})
	if err != nil {
		fmt.Fprintln(os.Stderr, "rebuild:", err)
		os.Exit(1)
	}

	if snap.CommandsDigest != "" && res.Digest != snap.CommandsDigest {
		fmt.Fprintf(os.Stderr, "digest mismatch: got=%s want=%s\n", res.Digest, snap.CommandsDigest)
		os.Exit(1)
	}
	if snap.CommandCount != 0 && len(res.Commands) != snap.CommandCount {
		fmt.Fprintf(os.Stderr, "command count mismatch: got=%d want=%d\n", len(res.Commands), snap.CommandCount)
		os.Exit(1)
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(res.Text()+"\n"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "write commands:", err)
			os.Exit(1)
		}
	}

	// Running the stream twice must leave the same world.
	store := voxel.NewStore(&cats.Blocks)
	emit.Apply(store, res.Commands)
	first := store.Digest()
	emit.Apply(store, res.Commands)
	if store.Digest() != first {
		fmt.Fprintln(os.Stderr, "commands are not idempotent")
		os.Exit(1)
	}

	p := cfg.Params()
	in, out := p.Openings(snap.Width, snap.Height, len(levels))
	fmt.Printf("entrance %s open=%v, exit %s open=%v, chunks=%d\n",
		describe(in), gapOpen(store, in.Gap), describe(out), gapOpen(store, out.Gap), len(store.LoadedChunkKeys()))

	if *runsDir != "" {
		files, err := listRunFiles(*runsDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list runs:", err)
			os.Exit(1)
		}
		entry, ok, err := findRun(files, snap.Header.RunID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "runs:", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "run %s not found in %s\n", snap.Header.RunID, *runsDir)
			os.Exit(1)
		}
		if entry.Digest != res.Digest || entry.Seed != snap.Seed {
			fmt.Fprintf(os.Stderr, "run log mismatch: log digest=%s seed=%d\n", entry.Digest, entry.Seed)
			os.Exit(1)
		}
	}

	fmt.Printf("replay ok: run=%s commands=%d ladders=%d fallbacks=%d digest=%s\n",
		res.RunID, res.Stats.Commands, res.Stats.Ladders, res.Stats.Fallbacks, res.Digest)
}

func describe(o geometry.Opening) string {
	v := o.Voxel
	return fmt.Sprintf("(%d,%d,%d) level %d", v.X, v.Y, v.Z, o.Level)
}

func gapOpen(s *voxel.Store, gap geometry.Box) bool {
	for y := gap.Min.Y; y <= gap.Max.Y; y++ {
		for z := gap.Min.Z; z <= gap.Max.Z; z++ {
			for x := gap.Min.X; x <= gap.Max.X; x++ {
				if s.Get(geometry.Vec3{X: x, Y: y, Z: z}) != emit.AirBlock {
					return false
				}
			}
		}
	}
	return true
}

func listRunFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "runs-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func findRun(files []string, runID string) (persistlog.RunEntry, bool, error) {
	for _, path := range files {
		e, ok, err := scanRunFile(path, runID)
		if err != nil || ok {
			return e, ok, err
		}
	}
	return persistlog.RunEntry{}, false, nil
}

func scanRunFile(path, runID string) (persistlog.RunEntry, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return persistlog.RunEntry{}, false, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return persistlog.RunEntry{}, false, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e persistlog.RunEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return e, false, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if e.RunID == runID {
			return e, true, nil
		}
	}
	return persistlog.RunEntry{}, false, sc.Err()
}
