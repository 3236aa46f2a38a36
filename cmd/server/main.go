package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"terragen.ai/internal/config"
	"terragen.ai/internal/persistence/archive"
	persistlog "terragen.ai/internal/persistence/log"
	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/terrain/realm"
	"terragen.ai/internal/transport/observer"
	"terragen.ai/internal/transport/ws"
)

func main() {
	var (
		configPath    = flag.String("config", "./configs/terrain.yaml", "terrain config path (empty for built-in defaults)")
		addr          = flag.String("addr", "", "http listen address (overrides server.addr)")
		dataDir       = flag.String("data", "", "runtime data directory (overrides data_dir)")
		disableDB     = flag.Bool("disable_db", false, "disable the sqlite batch/region index")
		loadSnapshots = flag.Bool("load_snapshots", true, "import region snapshots found under the data dir at startup")
		snapshotEvery = flag.Duration("snapshot_every", time.Minute, "how often freshly generated regions are written to disk (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dataDir != "" {
		cfg.SetDataDir(*dataDir)
	}

	// Optional: read-model index backend (does not affect generation).
	idx, err := openRuntimeIndex(cfg.Index.SQLitePath, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	batchLog := persistlog.NewBatchLogger(cfg.DataDir, func(err error) {
		logger.Printf("batch log: %v", err)
	})
	defer batchLog.Close()

	sinks := []realm.BatchSink{batchLog}
	if idx != nil {
		sinks = append(sinks, idx)
	}
	svc, err := realm.NewService(cfg, sinks...)
	if err != nil {
		logger.Fatalf("realm service: %v", err)
	}
	defer svc.Close()

	if *loadSnapshots {
		moved, err := archive.ArchiveStaleRegions(cfg.DataDir, svc.Seeds())
		if err != nil {
			logger.Fatalf("archive stale snapshots: %v", err)
		}
		if len(moved) > 0 {
			logger.Printf("archived %d region snapshots from another seed or realm set", len(moved))
		}
		n, err := importRegions(svc, cfg.DataDir)
		if err != nil {
			logger.Fatalf("import snapshots: %v", err)
		}
		if n > 0 {
			logger.Printf("imported %d region snapshots from %s", n, cfg.DataDir)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	mirror, err := buildSnapshotMirror(cfg.DataDir, logger)
	if err != nil {
		logger.Fatalf("snapshot mirror: %v", err)
	}
	if mirror != nil {
		// Registered before the final snapshot so its uploads drain on exit.
		defer mirror.Close()
	}

	snaps := &snapshotter{svc: svc, dataDir: cfg.DataDir, log: logger}
	if idx != nil {
		snaps.recorders = append(snaps.recorders, idx)
	}
	if mirror != nil {
		snaps.recorders = append(snaps.recorders, mirror)
	}
	if *snapshotEvery > 0 {
		go snaps.run(ctx, *snapshotEvery)
	}
	// Persist whatever is still dirty on the way out.
	defer snaps.once()

	obsSrv := observer.NewServer(svc, logger)
	svc.AddSink(obsSrv)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(svc, obsSrv, mirror))

	enableAdminHTTP := envBool("TG_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("TG_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		mux.HandleFunc("/admin/v1/state", stateHandler(svc))
		mux.HandleFunc("/admin/v1/snapshot", snapshotHandler(snaps))
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (TG_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (TG_ENABLE_PPROF_HTTP=false)")
	}

	wsLogger := log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)
	mux.HandleFunc("/v1/ws", ws.NewServer(svc, wsLogger).Handler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s realms=%d seed=%d", cfg.Server.Addr, len(cfg.Realms), cfg.Seed)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func importRegions(svc *realm.Service, dataDir string) (int, error) {
	paths, err := snapshot.ListRegions(dataDir)
	if err != nil {
		return 0, err
	}
	for _, p := range paths {
		reg, err := snapshot.ReadRegion(p)
		if err != nil {
			return 0, err
		}
		if err := svc.ImportRegion(reg); err != nil {
			return 0, err
		}
	}
	return len(paths), nil
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

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
