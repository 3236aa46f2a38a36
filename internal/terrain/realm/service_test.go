package realm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"terragen.ai/internal/config"
	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/gen"
)

type recordingSink struct {
	mu    sync.Mutex
	stats []gen.BatchStats
}

func (r *recordingSink) RecordBatch(st gen.BatchStats) {
	r.mu.Lock()
	r.stats = append(r.stats, st)
	r.mu.Unlock()
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Realms = []config.RealmSpec{
		{ID: 0, Name: "overworld"},
		{ID: 1, Name: "underworld", SeedOffset: 17},
	}
	cfg.Server.MaxAreaChunks = 16
	cfg.Normalize()
	return cfg
}

func area(x0, y0, x1, y1 int) coord.ChunkArea {
	return coord.ChunkArea{Min: coord.ChunkVec{X: x0, Y: y0}, Max: coord.ChunkVec{X: x1, Y: y1}}
}

func TestGenerateReturnsAreaChunks(t *testing.T) {
	sink := &recordingSink{}
	s, err := NewService(testConfig(), sink)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	a := area(-1, -1, 1, 1)
	res, err := s.Generate(context.Background(), Request{Realm: 0, Area: a})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Chunks) != a.Count() {
		t.Fatalf("chunks: got %d want %d", len(res.Chunks), a.Count())
	}
	if res.Chunks[0].Pos != a.Min {
		t.Fatalf("first chunk: got %v want %v", res.Chunks[0].Pos, a.Min)
	}
	if len(sink.stats) != 1 || sink.stats[0].Seq != 1 {
		t.Fatalf("sink: %+v", sink.stats)
	}

	again, err := s.Generate(context.Background(), Request{Realm: 0, Area: a})
	if err != nil {
		t.Fatalf("Generate again: %v", err)
	}
	if len(again.Stats.NewChunks) != 0 {
		t.Fatalf("second batch loaded %d chunks", len(again.Stats.NewChunks))
	}
	for i := range res.Chunks {
		if res.Chunks[i].Blocks != again.Chunks[i].Blocks {
			t.Fatalf("chunk %v changed between batches", res.Chunks[i].Pos)
		}
	}
}

func TestRealmsUseOwnSeeds(t *testing.T) {
	s, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if got := s.runtimes[1].Seed; got != 1234+17 {
		t.Fatalf("realm 1 seed: got %d", got)
	}
	a := area(0, -2, 2, 2)
	r0, err := s.Generate(context.Background(), Request{Realm: 0, Area: a})
	if err != nil {
		t.Fatalf("Generate realm 0: %v", err)
	}
	r1, err := s.Generate(context.Background(), Request{Realm: 1, Area: a})
	if err != nil {
		t.Fatalf("Generate realm 1: %v", err)
	}
	if len(r1.Stats.NewChunks) != a.Count() {
		t.Fatalf("realm 1 shares chunks with realm 0")
	}
	if len(r0.Chunks) != len(r1.Chunks) {
		t.Fatalf("chunk counts differ: %d vs %d", len(r0.Chunks), len(r1.Chunks))
	}
	same := true
	for i := 0; i < 32; i++ {
		b := coord.BlockVec{X: i * 600, Y: -i * 600}
		if s.runtimes[0].Gen.RawBiome(b).ID != s.runtimes[1].Gen.RawBiome(b).ID {
			same = false
		}
	}
	if same {
		t.Fatalf("realms with different seeds share a biome layout")
	}
}

func TestGenerateRejectsBadRequests(t *testing.T) {
	s, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()
	if _, err := s.Generate(ctx, Request{Realm: 9, Area: area(0, 0, 1, 1)}); !errors.Is(err, ErrUnknownRealm) {
		t.Fatalf("unknown realm: got %v", err)
	}
	if _, err := s.Generate(ctx, Request{Realm: 0, Area: area(0, 0, 5, 5)}); !errors.Is(err, ErrAreaTooLarge) {
		t.Fatalf("large area: got %v", err)
	}
	if _, err := s.Generate(ctx, Request{Realm: 0, Area: area(0, 0, 0, 3)}); !errors.Is(err, ErrEmptyArea) {
		t.Fatalf("empty area: got %v", err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Generate(cancelled, Request{Realm: 0, Area: area(0, 0, 1, 1)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled: got %v", err)
	}
	s.Close()
	if _, err := s.Generate(ctx, Request{Realm: 0, Area: area(0, 0, 1, 1)}); !errors.Is(err, ErrServiceClosed) {
		t.Fatalf("closed: got %v", err)
	}
}

func TestValidateBoundsHugeAreas(t *testing.T) {
	s, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer s.Close()

	// 2^63 chunks overflows a naive width*height product.
	wide := area(-1<<62, 0, 1<<62, 1)
	if err := s.Validate(Request{Realm: 0, Area: wide}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("overflowing area: got %v", err)
	}
	inside := area(-coord.MaxChunkCoord, 0, coord.MaxChunkCoord, 1)
	if err := s.Validate(Request{Realm: 0, Area: inside}); !errors.Is(err, ErrAreaTooLarge) {
		t.Fatalf("wide in-bounds area: got %v", err)
	}
	tall := area(0, 0, 1, 17)
	if err := s.Validate(Request{Realm: 0, Area: tall}); !errors.Is(err, ErrAreaTooLarge) {
		t.Fatalf("17x1 column: got %v", err)
	}
	if err := s.Validate(Request{Realm: 0, Area: area(0, 0, 16, 1)}); err != nil {
		t.Fatalf("16x1 row: %v", err)
	}
}

func TestGenerateRejectsFarCoordinates(t *testing.T) {
	s, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	far := area(1<<59, 0, 1<<59+1, 1)
	if _, err := s.Generate(ctx, Request{Realm: 0, Area: far}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("far chunk: got %v", err)
	}
	below := area(0, -coord.MaxChunkCoord-1, 1, -coord.MaxChunkCoord)
	if _, err := s.Generate(ctx, Request{Realm: 0, Area: below}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("chunk below range: got %v", err)
	}

	// The edge of the range still generates, and the rejection left no
	// half-finished state behind.
	edge := area(coord.MaxChunkCoord, 0, coord.MaxChunkCoord+1, 1)
	res, err := s.Generate(ctx, Request{Realm: 0, Area: edge})
	if err != nil {
		t.Fatalf("edge chunk: %v", err)
	}
	if len(res.Chunks) != 1 || res.Stats.Seq != 1 {
		t.Fatalf("edge result: chunks=%d seq=%d", len(res.Chunks), res.Stats.Seq)
	}
}

func TestSnapshotDirtyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	a := area(-1, 0, 1, 2)
	res, err := s.Generate(context.Background(), Request{Realm: 1, Area: a})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	saved, err := s.SnapshotDirty(dir)
	if err != nil {
		t.Fatalf("SnapshotDirty: %v", err)
	}
	// Chunk x -1 and x 0 fall in different region columns.
	if len(saved) != 2 {
		t.Fatalf("saved regions: got %d want 2", len(saved))
	}
	if again, err := s.SnapshotDirty(dir); err != nil || len(again) != 0 {
		t.Fatalf("second snapshot: %d regions, err %v", len(again), err)
	}

	restored, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	for _, sr := range saved {
		reg, err := snapshot.ReadRegion(sr.Path)
		if err != nil {
			t.Fatalf("ReadRegion %s: %v", sr.Path, err)
		}
		if reg.Header.Seed != 1234+17 || reg.Header.Realm != 1 {
			t.Fatalf("header: %+v", reg.Header)
		}
		if err := restored.ImportRegion(reg); err != nil {
			t.Fatalf("ImportRegion: %v", err)
		}
	}
	back, err := restored.Generate(context.Background(), Request{Realm: 1, Area: a})
	if err != nil {
		t.Fatalf("Generate restored: %v", err)
	}
	if len(back.Stats.NewChunks) != 0 {
		t.Fatalf("restored service regenerated %d chunks", len(back.Stats.NewChunks))
	}
	for i := range res.Chunks {
		if res.Chunks[i].Blocks != back.Chunks[i].Blocks {
			t.Fatalf("chunk %v differs after restore", res.Chunks[i].Pos)
		}
		if len(res.Chunks[i].Entities) != len(back.Chunks[i].Entities) {
			t.Fatalf("chunk %v entities differ after restore", res.Chunks[i].Pos)
		}
	}
}

func TestStatsReportLayers(t *testing.T) {
	s, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := s.Generate(context.Background(), Request{Realm: 0, Area: area(0, 0, 1, 1)}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	stats := s.Stats()
	if len(stats) != 2 {
		t.Fatalf("stats: got %d realms", len(stats))
	}
	if stats[0].Seq != 1 || stats[0].CacheSizeBytes == 0 || stats[0].LoadedRegions != 1 {
		t.Fatalf("realm 0 stats: %+v", stats[0])
	}
	if stats[0].Generated[gen.LayerBlendedBiomeBlock.String()] != 1 {
		t.Fatalf("block generates: %v", stats[0].Generated)
	}
	if stats[1].Seq != 0 || stats[1].LoadedRegions != 0 {
		t.Fatalf("realm 1 touched: %+v", stats[1])
	}
}

func TestBatchDigestTracksTerrain(t *testing.T) {
	run := func(reqs ...Request) []string {
		sink := &recordingSink{}
		s, err := NewService(testConfig(), sink)
		if err != nil {
			t.Fatalf("NewService: %v", err)
		}
		for _, req := range reqs {
			res, err := s.Generate(context.Background(), req)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if res.Stats.Digest == "" {
				t.Fatalf("empty digest")
			}
		}
		out := make([]string, 0, len(sink.stats))
		for _, st := range sink.stats {
			out = append(out, st.Digest)
		}
		return out
	}

	a := Request{Realm: 0, Area: area(0, 0, 2, 2)}
	b := Request{Realm: 0, Area: area(4, 0, 6, 2)}
	first := run(a, b, a)
	second := run(a, b, a)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("batch %d digest differs between runs", i)
		}
	}
	if first[0] == first[1] {
		t.Fatalf("different areas share a digest")
	}
	if first[0] != first[2] {
		t.Fatalf("repeated area changed digest")
	}
	if other := run(Request{Realm: 1, Area: a.Area}); other[0] == first[0] {
		t.Fatalf("realms share a digest")
	}
}

func TestImportRegionRejectsForeignSeed(t *testing.T) {
	s, err := NewService(testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if got := s.Seeds(); got[0] != 1234 || got[1] != 1234+17 {
		t.Fatalf("seeds: %v", got)
	}
	reg := snapshot.RegionV1{Header: snapshot.Header{Version: snapshot.Version, Realm: 0, Seed: 99}}
	if err := s.ImportRegion(reg); !errors.Is(err, ErrSeedMismatch) {
		t.Fatalf("expected ErrSeedMismatch, got %v", err)
	}
	reg.Header.Realm = 7
	if err := s.ImportRegion(reg); !errors.Is(err, ErrUnknownRealm) {
		t.Fatalf("expected ErrUnknownRealm, got %v", err)
	}
}
