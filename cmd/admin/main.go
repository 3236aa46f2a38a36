package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"terragen.ai/internal/config"
	"terragen.ai/internal/persistence/archive"
	"terragen.ai/internal/persistence/indexdb"
	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/realm"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "generate":
			generateCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "render":
			renderCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "batches":
			batchesCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the region snapshots under a data dir.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	paths, err := snapshot.ListRegions(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

// generateCmd runs one batch offline and writes the touched regions.
func generateCmd(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "./configs/terrain.yaml", "terrain config path (empty for defaults)")
	dataDir := fs.String("data", "", "output data directory (overrides data_dir)")
	realmID := fs.Int("realm", 0, "realm id")
	minS := fs.String("min", "", "area min chunk: x,y (required)")
	maxS := fs.String("max", "", "area max chunk, exclusive: x,y (required)")
	noIndex := fs.Bool("no_index", false, "do not record the batch and regions in the sqlite index")
	_ = fs.Parse(args)

	area, err := parseArea(*minS, *maxS)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad area:", err)
		os.Exit(2)
	}
	cfg := loadConfig(*configPath, *dataDir)
	if n := area.Count(); n > cfg.Server.MaxAreaChunks {
		cfg.Server.MaxAreaChunks = n
	}

	var idx *indexdb.SQLiteIndex
	var sinks []realm.BatchSink
	if !*noIndex && cfg.Index.SQLitePath != "" {
		idx, err = indexdb.OpenSQLite(cfg.Index.SQLitePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open index:", err)
			os.Exit(1)
		}
		defer idx.Close()
		sinks = append(sinks, idx)
	}

	svc, err := realm.NewService(cfg, sinks...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if _, err := archive.ArchiveStaleRegions(cfg.DataDir, svc.Seeds()); err != nil {
		fmt.Fprintln(os.Stderr, "archive stale snapshots:", err)
		os.Exit(1)
	}
	if _, err := importRegions(svc, cfg.DataDir); err != nil {
		fmt.Fprintln(os.Stderr, "import snapshots:", err)
		os.Exit(1)
	}
	res, err := svc.Generate(context.Background(), realm.Request{Realm: coord.RealmID(*realmID), Area: area})
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate:", err)
		os.Exit(1)
	}
	saved, err := svc.SnapshotDirty(cfg.DataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
	if idx != nil {
		for _, sr := range saved {
			idx.RecordRegion(sr)
		}
	}

	out := struct {
		Seq        uint64         `json:"seq"`
		Chunks     int            `json:"chunks"`
		NewChunks  int            `json:"new_chunks"`
		Structures int            `json:"structures"`
		Generated  map[string]int `json:"generated"`
		DurationMS float64        `json:"duration_ms"`
		Regions    []string       `json:"regions"`
	}{
		Seq:        res.Stats.Seq,
		Chunks:     len(res.Chunks),
		NewChunks:  len(res.Stats.NewChunks),
		Structures: res.Stats.Structures,
		Generated:  res.Stats.Generated,
		DurationMS: float64(res.Stats.Duration.Microseconds()) / 1000,
	}
	for _, sr := range saved {
		out.Regions = append(out.Regions, sr.Path)
	}
	printJSON(out)
}

// inspectCmd prints the header and a per-chunk summary of region snapshots.
func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	headerOnly := fs.Bool("header", false, "print only the header")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: admin inspect [-header] <region.zst>...")
		os.Exit(2)
	}

	for _, path := range fs.Args() {
		if *headerOnly {
			h, err := snapshot.ReadHeader(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, "read header:", err)
				os.Exit(1)
			}
			printJSON(h)
			continue
		}
		reg, err := snapshot.ReadRegion(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read region:", err)
			os.Exit(1)
		}
		sum, err := summarizeRegion(reg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "decode region:", err)
			os.Exit(1)
		}
		printJSON(sum)
	}
}

// dbCmd queries the sqlite index: "batches" (default) or "regions".
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	configPath := fs.String("config", "./configs/terrain.yaml", "terrain config path (empty for defaults)")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to index.sqlite_path)")
	realmID := fs.Int("realm", -1, "realm id filter (-1 for all)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "batches"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = loadConfig(*configPath, "").Index.SQLitePath
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "index disabled in config; pass -db")
		os.Exit(2)
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx := context.Background()
	switch q {
	case "batches":
		rows, err := idx.RecentBatches(ctx, *realmID, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}
	case "regions":
		rows, err := idx.Regions(ctx, *realmID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want batches or regions)")
		os.Exit(2)
	}
}

func loadConfig(path, dataDir string) config.Config {
	cfg, err := config.Load(strings.TrimSpace(path))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if dataDir != "" {
		cfg.SetDataDir(dataDir)
	}
	return cfg
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

func parseArea(minS, maxS string) (coord.ChunkArea, error) {
	if strings.TrimSpace(minS) == "" || strings.TrimSpace(maxS) == "" {
		return coord.ChunkArea{}, fmt.Errorf("need -min and -max")
	}
	min, err := parseVec2(minS)
	if err != nil {
		return coord.ChunkArea{}, err
	}
	max, err := parseVec2(maxS)
	if err != nil {
		return coord.ChunkArea{}, err
	}
	a := coord.ChunkArea{Min: coord.ChunkVec{X: min[0], Y: min[1]}, Max: coord.ChunkVec{X: max[0], Y: max[1]}}
	if a.Empty() {
		return a, fmt.Errorf("empty area %v..%v", a.Min, a.Max)
	}
	return a, nil
}

func parseVec2(s string) ([2]int, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return [2]int{}, fmt.Errorf("expected x,y")
	}
	var out [2]int
	for i := 0; i < 2; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return [2]int{}, err
		}
		out[i] = v
	}
	return out, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
