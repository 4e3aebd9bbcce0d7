package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelmaze.ai/internal/catalogs"
	"voxelmaze.ai/internal/tuning"
)

// SQLiteIndex is a queryable secondary index of generation runs. Writes go
// through a single goroutine; the compressed run logs stay the source of
// truth, so a full queue drops rows instead of blocking generation.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRun      atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqRun reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind     reqKind
	run      RunRow
	snapshot snapshotRow
}

// RunRow is one generation run.
type RunRow struct {
	RunID      string `json:"run_id"`
	RecordedAt string `json:"recorded_at"`
	Seed       int64  `json:"seed"`
	Mode       string `json:"mode"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Levels     int    `json:"levels"`
	Commands   int    `json:"commands"`
	Ladders    int    `json:"ladders"`
	Fallbacks  int    `json:"fallbacks"`
	Holes      int    `json:"holes"`
	Digest     string `json:"digest"`
}

type snapshotRow struct {
	RunID string
	Path  string
	Tick  uint64
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropRunTotal      uint64 `json:"drop_run_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			recorded_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			mode TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			levels INTEGER NOT NULL,
			commands INTEGER NOT NULL,
			ladders INTEGER NOT NULL,
			fallbacks INTEGER NOT NULL,
			holes INTEGER NOT NULL,
			digest TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_recorded ON runs(recorded_at);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			tick INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordRun(r RunRow) {
	if s == nil || s.closed.Load() {
		return
	}
	if r.RecordedAt == "" {
		r.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case s.ch <- req{kind: reqRun, run: r}:
	default:
		s.dropRun.Add(1)
	}
}

func (s *SQLiteIndex) RecordSnapshot(runID, path string, tick uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: snapshotRow{RunID: runID, Path: path, Tick: tick}}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropRunTotal:      s.dropRun.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// UpsertCatalogs stores the block catalog and the default config next to the
// runs so a database can be read on its own.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, defaults tuning.Config) error {
	if s == nil || cats == nil {
		return nil
	}
	blocks, err := json.Marshal(cats.Blocks.Defs)
	if err != nil {
		return err
	}
	cfg, err := json.Marshal(defaults)
	if err != nil {
		return err
	}
	rows := []struct {
		name   string
		digest string
		json   []byte
	}{
		{"blocks", cats.Blocks.DefsDigest, blocks},
		{"config", "", cfg},
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`,
			r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteIndex) RecentRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id,recorded_at,seed,mode,width,height,levels,commands,ladders,fallbacks,holes,digest
		FROM runs ORDER BY recorded_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunID, &r.RecordedAt, &r.Seed, &r.Mode, &r.Width, &r.Height, &r.Levels,
			&r.Commands, &r.Ladders, &r.Fallbacks, &r.Holes, &r.Digest); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SnapshotPath returns the snapshot file recorded for runID, or "" if none.
func (s *SQLiteIndex) SnapshotPath(ctx context.Context, runID string) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx, `SELECT path FROM snapshots WHERE run_id=?`, runID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return path, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,recorded_at,seed,mode,width,height,levels,commands,ladders,fallbacks,holes,digest) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,path,tick) VALUES(?,?,?)`)
	defer func() {
		if insertRun != nil {
			_ = insertRun.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqRun:
			if insertRun != nil {
				_, err = tx.Stmt(insertRun).Exec(r.run.RunID, r.run.RecordedAt, r.run.Seed, r.run.Mode,
					r.run.Width, r.run.Height, r.run.Levels, r.run.Commands, r.run.Ladders,
					r.run.Fallbacks, r.run.Holes, r.run.Digest)
			}
		case reqSnapshot:
			if insertSnapshot != nil {
				_, err = tx.Stmt(insertSnapshot).Exec(r.snapshot.RunID, r.snapshot.Path, int64(r.snapshot.Tick))
			}
		}
		if err != nil {
			rollback()
			continue
		}
		opCount++

		// Commit when idle so readers see rows promptly.
		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
