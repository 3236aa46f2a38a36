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

	"terragen.ai/internal/terrain/gen"
	"terragen.ai/internal/terrain/realm"
)

const schemaVersion = "1"

// SQLiteIndex is a queryable secondary index of generation batches and
// region snapshots. Writes are queued to a single writer goroutine and
// dropped when it falls behind; the JSONL batch log stays authoritative.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropBatch  atomic.Uint64
	dropRegion atomic.Uint64
}

type reqKind int

const (
	reqBatch reqKind = iota + 1
	reqRegion
	reqFlush
)

type req struct {
	kind reqKind

	batch  BatchRow
	region RegionRow
	done   chan struct{}
}

// BatchRow is one row of the batches table.
type BatchRow struct {
	Seq        uint64
	Realm      int
	MinX, MinY int
	MaxX, MaxY int
	Generated  map[string]int
	NewChunks  int
	Structures int
	Evicted    int
	DurationMS float64
	RecordedAt string
}

// RegionRow is one row of the region_snapshots table.
type RegionRow struct {
	Realm      int
	RX, RY     int
	Path       string
	Chunks     int
	Seq        uint64
	Seed       int64
	RecordedAt string
}

type Stats struct {
	QueueDepth      int
	QueueCapacity   int
	DropBatchTotal  uint64
	DropRegionTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
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
		ch: make(chan req, queue),
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
		`CREATE TABLE IF NOT EXISTS batches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			realm INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			min_x INTEGER NOT NULL,
			min_y INTEGER NOT NULL,
			max_x INTEGER NOT NULL,
			max_y INTEGER NOT NULL,
			generated_json TEXT NOT NULL,
			new_chunks INTEGER NOT NULL,
			structures INTEGER NOT NULL,
			evicted INTEGER NOT NULL,
			duration_ms REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_batches_realm_seq ON batches(realm, seq);`,
		`CREATE TABLE IF NOT EXISTS region_snapshots (
			realm INTEGER NOT NULL,
			rx INTEGER NOT NULL,
			ry INTEGER NOT NULL,
			path TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (realm, rx, ry)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_region_snapshots_seq ON region_snapshots(realm, seq);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
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

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropBatchTotal:  s.dropBatch.Load(),
		DropRegionTotal: s.dropRegion.Load(),
	}
}

// RecordBatch queues one batch row. It satisfies realm.BatchSink.
func (s *SQLiteIndex) RecordBatch(st gen.BatchStats) {
	if s == nil || s.closed.Load() {
		return
	}
	r := BatchRow{
		Seq:        st.Seq,
		Realm:      int(st.Realm),
		MinX:       st.Area.Min.X,
		MinY:       st.Area.Min.Y,
		MaxX:       st.Area.Max.X,
		MaxY:       st.Area.Max.Y,
		Generated:  st.Generated,
		NewChunks:  len(st.NewChunks),
		Structures: st.Structures,
		Evicted:    st.Evicted,
		DurationMS: float64(st.Duration.Microseconds()) / 1000,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqBatch, batch: r}:
	default:
		s.dropBatch.Add(1)
	}
}

// RecordRegion queues the latest snapshot location of one region.
func (s *SQLiteIndex) RecordRegion(sr realm.SavedRegion) {
	if s == nil || s.closed.Load() {
		return
	}
	r := RegionRow{
		Realm:      int(sr.Coord.Realm),
		RX:         sr.Coord.Pos.X,
		RY:         sr.Coord.Pos.Y,
		Path:       sr.Path,
		Chunks:     sr.Chunks,
		Seq:        sr.Seq,
		Seed:       sr.Seed,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqRegion, region: r}:
	default:
		s.dropRegion.Add(1)
	}
}

// Flush blocks until every queued write is committed or ctx is done.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecentBatches returns up to limit batches, newest first. A negative realm
// matches every realm.
func (s *SQLiteIndex) RecentBatches(ctx context.Context, realmID, limit int) ([]BatchRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq,realm,min_x,min_y,max_x,max_y,generated_json,new_chunks,structures,evicted,duration_ms,recorded_at
		FROM batches WHERE (? < 0 OR realm = ?) ORDER BY id DESC LIMIT ?`, realmID, realmID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BatchRow
	for rows.Next() {
		var (
			b       BatchRow
			genJSON string
			seq     int64
		)
		if err := rows.Scan(&seq, &b.Realm, &b.MinX, &b.MinY, &b.MaxX, &b.MaxY, &genJSON, &b.NewChunks, &b.Structures, &b.Evicted, &b.DurationMS, &b.RecordedAt); err != nil {
			return nil, err
		}
		b.Seq = uint64(seq)
		if err := json.Unmarshal([]byte(genJSON), &b.Generated); err != nil {
			return nil, fmt.Errorf("batch %d/%d generated_json: %w", b.Realm, b.Seq, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Regions lists the indexed region snapshots of one realm ordered by
// position. A negative realm matches every realm.
func (s *SQLiteIndex) Regions(ctx context.Context, realmID int) ([]RegionRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT realm,rx,ry,path,chunks,seq,seed,recorded_at
		FROM region_snapshots WHERE (? < 0 OR realm = ?) ORDER BY realm, rx, ry`, realmID, realmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RegionRow
	for rows.Next() {
		var (
			r   RegionRow
			seq int64
		)
		if err := rows.Scan(&r.Realm, &r.RX, &r.RY, &r.Path, &r.Chunks, &seq, &r.Seed, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Seq = uint64(seq)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertBatch, _ := s.db.Prepare(`INSERT INTO batches(realm,seq,min_x,min_y,max_x,max_y,generated_json,new_chunks,structures,evicted,duration_ms,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertRegion, _ := s.db.Prepare(`INSERT OR REPLACE INTO region_snapshots(realm,rx,ry,path,chunks,seq,seed,recorded_at) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertBatch != nil {
			_ = insertBatch.Close()
		}
		if insertRegion != nil {
			_ = insertRegion.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
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
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		// An idle queue commits right away so readers never wait on an open tx.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqBatch:
			b := r.batch
			genJSON, _ := json.Marshal(b.Generated)
			if insertBatch != nil {
				if _, err := tx.Stmt(insertBatch).Exec(
					b.Realm,
					int64(b.Seq),
					b.MinX, b.MinY,
					b.MaxX, b.MaxY,
					string(genJSON),
					b.NewChunks,
					b.Structures,
					b.Evicted,
					b.DurationMS,
					b.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqRegion:
			rg := r.region
			if insertRegion != nil {
				if _, err := tx.Stmt(insertRegion).Exec(
					rg.Realm,
					rg.RX, rg.RY,
					rg.Path,
					rg.Chunks,
					int64(rg.Seq),
					rg.Seed,
					rg.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
