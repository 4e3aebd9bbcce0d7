package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"voxelmaze.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	mode := fs.String("mode", "", "mode filter for runs (2d|3d)")
	runID := fs.String("run", "", "run id (snapshot query)")
	_ = fs.Parse(args)

	q := "runs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "runs.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "runs":
		query := `SELECT run_id,recorded_at,seed,mode,width,height,levels,commands,ladders,fallbacks,holes,digest FROM runs ORDER BY recorded_at DESC, run_id LIMIT ?`
		qargs := []any{*limit}
		if m := strings.ToLower(strings.TrimSpace(*mode)); m != "" {
			query = `SELECT run_id,recorded_at,seed,mode,width,height,levels,commands,ladders,fallbacks,holes,digest FROM runs WHERE mode=? ORDER BY recorded_at DESC, run_id LIMIT ?`
			qargs = []any{m, *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r indexdb.RunRow
			if err := rows.Scan(&r.RunID, &r.RecordedAt, &r.Seed, &r.Mode, &r.Width, &r.Height, &r.Levels,
				&r.Commands, &r.Ladders, &r.Fallbacks, &r.Holes, &r.Digest); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "snapshots":
		query := `SELECT run_id,path,tick FROM snapshots ORDER BY tick DESC LIMIT ?`
		qargs := []any{*limit}
		if id := strings.TrimSpace(*runID); id != "" {
			query = `SELECT run_id,path,tick FROM snapshots WHERE run_id=? LIMIT ?`
			qargs = []any{id, *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				RunID string `json:"run_id"`
				Path  string `json:"path"`
				Tick  int64  `json:"tick"`
			}
			if err := rows.Scan(&r.RunID, &r.Path, &r.Tick); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "stats":
		var r struct {
			Runs      int     `json:"runs"`
			Commands  int64   `json:"commands"`
			Ladders   int64   `json:"ladders"`
			Fallbacks int64   `json:"fallbacks"`
			Fallback  float64 `json:"fallback_ratio"`
		}
		row := db.QueryRow(`SELECT COUNT(*),COALESCE(SUM(commands),0),COALESCE(SUM(ladders),0),COALESCE(SUM(fallbacks),0) FROM runs`)
		if err := row.Scan(&r.Runs, &r.Commands, &r.Ladders, &r.Fallbacks); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		if r.Ladders > 0 {
			r.Fallback = float64(r.Fallbacks) / float64(r.Ladders)
		}
		printJSON(r)

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,json,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string          `json:"name"`
				Digest    string          `json:"digest"`
				JSON      json.RawMessage `json:"json"`
				UpdatedAt string          `json:"updated_at"`
			}
			var raw string
			if err := rows.Scan(&r.Name, &r.Digest, &raw, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.JSON = json.RawMessage(raw)
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-limit N] runs|snapshots|stats|catalogs")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
