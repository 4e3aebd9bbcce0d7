package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"voxelmaze.ai/internal/encoding"
	"voxelmaze.ai/internal/maze"
	"voxelmaze.ai/internal/tuning"
)

const Version = 1

var ErrVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	// Tick is the unix millisecond time the snapshot was taken.
	Tick uint64 `json:"tick"`
}

// MazeSnapshotV1 captures the level mazes after hole selection, which is
// everything the emitter needs to rebuild the same command stream.
type MazeSnapshotV1 struct {
	Header Header `json:"header"`

	Seed   int64         `json:"seed"`
	Config tuning.Config `json:"config"`
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Levels []LevelV1     `json:"levels"`

	CommandsDigest string `json:"commands_digest"`
	CommandCount   int    `json:"command_count"`
}

// LevelV1 holds row-major per-cell data, RLE encoded.
type LevelV1 struct {
	Level int    `json:"level"`
	Walls string `json:"walls"`
	Up    string `json:"up"`
	Down  string `json:"down"`
}

func New(runID string, tick uint64, seed int64, cfg tuning.Config, levels []maze.LevelMaze) MazeSnapshotV1 {
	snap := MazeSnapshotV1{
		Header: Header{Version: Version, RunID: runID, Tick: tick},
		Seed:   seed,
		Config: cfg,
	}
	if len(levels) == 0 {
		return snap
	}
	snap.Width, snap.Height = levels[0].Width, levels[0].Height
	n := snap.Width * snap.Height
	for _, lm := range levels {
		walls := make([]uint8, 0, n)
		up := make([]uint8, 0, n)
		down := make([]uint8, 0, n)
		for y := 0; y < lm.Height; y++ {
			for x := 0; x < lm.Width; x++ {
				c := lm.At(x, y)
				walls = append(walls, uint8(c.Walls))
				up = append(up, flag(c.HasUp))
				down = append(down, flag(c.HasDown))
			}
		}
		snap.Levels = append(snap.Levels, LevelV1{
			Level: lm.Level,
			Walls: encoding.EncodeRLE(walls),
			Up:    encoding.EncodeRLE(up),
			Down:  encoding.EncodeRLE(down),
		})
	}
	return snap
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// ToLevels rebuilds the level mazes stored in the snapshot.
func (s MazeSnapshotV1) ToLevels() ([]maze.LevelMaze, error) {
	if s.Width <= 0 || s.Height <= 0 || len(s.Levels) == 0 {
		return nil, fmt.Errorf("snapshot %s: empty maze", s.Header.RunID)
	}
	n := s.Width * s.Height
	out := make([]maze.LevelMaze, 0, len(s.Levels))
	for i, lv := range s.Levels {
		if lv.Level != i {
			return nil, fmt.Errorf("level %d stored at index %d", lv.Level, i)
		}
		walls, err := encoding.DecodeRLE(lv.Walls, n)
		if err != nil {
			return nil, fmt.Errorf("level %d walls: %w", i, err)
		}
		up, err := encoding.DecodeRLE(lv.Up, n)
		if err != nil {
			return nil, fmt.Errorf("level %d up: %w", i, err)
		}
		down, err := encoding.DecodeRLE(lv.Down, n)
		if err != nil {
			return nil, fmt.Errorf("level %d down: %w", i, err)
		}
		lm := maze.NewLevelMaze(s.Width, s.Height, i)
		for k := 0; k < n; k++ {
			y, x := k/s.Width, k%s.Width
			lm.Cells[y][x] = maze.LevelCell{Walls: maze.Cell(walls[k]), HasUp: up[k] != 0, HasDown: down[k] != 0}
		}
		out = append(out, lm)
	}
	return out, nil
}

func WriteSnapshot(path string, snap MazeSnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (MazeSnapshotV1, error) {
	var snap MazeSnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("%w: %d", ErrVersion, snap.Header.Version)
	}
	return snap, nil
}
