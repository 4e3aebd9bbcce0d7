package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelmaze.ai/internal/catalogs"
	"voxelmaze.ai/internal/metrics"
	persistlog "voxelmaze.ai/internal/persistence/log"
	"voxelmaze.ai/internal/pipeline"
	"voxelmaze.ai/internal/transport/ws"
	"voxelmaze.ai/internal/tuning"
)

func main() {
	var (
		addr          = flag.String("addr", ":8080", "http listen address")
		configDir     = flag.String("configs", "./configs", "config directory (blocks.json override)")
		configPath    = flag.String("config", "", "path to maze.yaml with request defaults (default: <configs>/maze.yaml)")
		dataDir       = flag.String("data", "./data", "runtime data directory")
		disableDB     = flag.Bool("disable_db", false, "disable the run index")
		snapshots     = flag.Bool("snapshots", true, "write a maze snapshot per run")
		maxConcurrent = flag.Int("max_concurrent", envInt("MAZE_MAX_CONCURRENT", 4), "generations in flight before E_BUSY")
		batchSize     = flag.Int("batch", ws.DefaultBatchSize, "command lines per COMMANDS message")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	cp := strings.TrimSpace(*configPath)
	if cp == "" {
		cp = filepath.Join(*configDir, "maze.yaml")
	}
	defaults, err := tuning.Load(cp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load config: %v", err)
		}
		logger.Printf("config not found (%s); using defaults", cp)
		defaults = tuning.Defaults()
	}
	if err := defaults.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}
	// Request defaults never pin a seed; each request gets its own.
	defaults.Seed = 0

	_ = os.MkdirAll(*dataDir, 0o755)

	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, defaults); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	runLog := persistlog.NewRunLogger(*dataDir)
	defer runLog.Close()

	m := metrics.New()
	runner := &pipeline.Runner{
		Log:      logger,
		Catalogs: cats,
		Metrics:  m,
		RunLog:   runLog,
		Index:    idx,
	}
	if *snapshots {
		runner.SnapshotDir = filepath.Join(*dataDir, "snapshots")
	}

	ctx, cancel := signalContext()
	defer cancel()

	wsSrv := ws.NewServer(runner, defaults, logger, *maxConcurrent)
	wsSrv.SetBatchSize(*batchSize)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/v1/generate", m.Instrument("/v1/generate", wsSrv.GenerateHandler()))
	mux.Handle("/v1/ws", wsSrv.Handler())

	if envBool("MAZE_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		mux.Handle("/admin/v1/runs", m.Instrument("/admin/v1/runs", ws.RunsHandler(idx)))
	} else {
		logger.Printf("admin endpoints disabled (MAZE_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("MAZE_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (defaults %dx%dx%d mode=%s)", *addr, defaults.Width, defaults.Height, defaults.Levels, defaults.MazeMode())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	if s := idx.Stats(); s.DropRunTotal > 0 || s.DropSnapshotTotal > 0 {
		logger.Printf("index dropped %d runs and %d snapshots", s.DropRunTotal, s.DropSnapshotTotal)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
