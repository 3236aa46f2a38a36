package store

import (
	"reflect"
	"testing"

	"terragen.ai/internal/terrain/coord"
)

func TestRegionStorePopulateOnce(t *testing.T) {
	s := NewRegionStore[int](70)
	calls := 0
	fill := func(v *int) { calls++; *v = 42 }
	if !s.Populate(65, fill) {
		t.Fatalf("first populate should run")
	}
	if s.Populate(65, fill) {
		t.Fatalf("second populate should be a no-op")
	}
	if calls != 1 {
		t.Fatalf("fill calls: got %d want 1", calls)
	}
	if got := s.Get(65); got != 42 {
		t.Fatalf("Get: got %d want 42", got)
	}
	if s.IsPopulated(64) || s.IsPopulated(66) {
		t.Fatalf("neighbouring cells marked populated")
	}
	if s.PopulatedCount() != 1 {
		t.Fatalf("PopulatedCount: got %d want 1", s.PopulatedCount())
	}
}

func TestRegionStoreGetUnpopulatedPanics(t *testing.T) {
	s := NewRegionStore[int](4)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on unpopulated read")
		}
	}()
	_ = s.Get(1)
}

func TestChunkDataCacheMemoizes(t *testing.T) {
	c := NewChunkDataCache[int]()
	area := coord.ChunkArea{Min: coord.ChunkVec{X: -1, Y: -1}, Max: coord.ChunkVec{X: 1, Y: 1}}
	c.Reserve(area, 1)
	if len(c.Regions()) != 4 {
		t.Fatalf("regions reserved: got %d want 4", len(c.Regions()))
	}
	for pass := 0; pass < 2; pass++ {
		area.Each(func(ch coord.ChunkVec) {
			c.Populate(ch, 1, func(v *int) { *v = ch.X*10 + ch.Y })
		})
	}
	if c.Fills() != 4 {
		t.Fatalf("fills: got %d want 4", c.Fills())
	}
	if got := *c.Get(coord.ChunkVec{X: -1, Y: 0}); got != -10 {
		t.Fatalf("Get: got %d want -10", got)
	}
	if c.IsPopulated(coord.ChunkVec{X: 5, Y: 5}, 1) {
		t.Fatalf("unrequested chunk reported populated")
	}
}

func TestClearCacheEvictsOldRegions(t *testing.T) {
	c := NewChunkDataCache[int]()
	old := coord.ChunkVec{X: 0, Y: 0}
	young := coord.ChunkVec{X: coord.RegionSize, Y: 0}
	c.Populate(old, 1, func(v *int) { *v = 1 })
	c.Populate(young, 5, func(v *int) { *v = 2 })
	if n := c.ClearCache(3); n != 1 {
		t.Fatalf("evicted: got %d want 1", n)
	}
	if c.IsPopulated(old, 6) {
		t.Fatalf("evicted chunk still populated")
	}
	if !c.IsPopulated(young, 6) {
		t.Fatalf("young chunk was evicted")
	}
	if n := c.ClearCache(100); n != 1 {
		t.Fatalf("evicted: got %d want 1", n)
	}
	if c.CacheSizeBytes() != 0 {
		t.Fatalf("size after full eviction: got %d", c.CacheSizeBytes())
	}
}

func TestIsPopulatedRefreshesAge(t *testing.T) {
	c := NewChunkDataCache[int]()
	ch := coord.ChunkVec{X: 2, Y: 2}
	c.Populate(ch, 1, func(v *int) {})
	c.IsPopulated(ch, 9)
	if seq, _ := c.LastUsed(coord.ChunkToRegion(ch)); seq != 9 {
		t.Fatalf("lastUsed: got %d want 9", seq)
	}
	if n := c.ClearCache(5); n != 0 {
		t.Fatalf("touched region evicted")
	}
}

func TestCacheSizeBytes(t *testing.T) {
	c := NewChunkDataCache[int64]()
	c.Reserve(coord.ChunkArea{Max: coord.ChunkVec{X: 1, Y: 1}}, 1)
	want := coord.RegionSize*coord.RegionSize*8 + 4*8
	if got := c.CacheSizeBytes(); got != want {
		t.Fatalf("CacheSizeBytes: got %d want %d", got, want)
	}
}

func TestBlockSpanCache(t *testing.T) {
	c := NewBlockSpanCache[int]()
	c.Reserve(coord.RegionSpanX{Min: -1, Max: 1}, 1)
	if c.IsPopulated(-1, 1) {
		t.Fatalf("reserved column reported populated")
	}
	for _, rx := range []int{-1, 0, -1} {
		c.Populate(rx, 1, func(cells []int) {
			base := rx * coord.BlocksPerRegion
			for i := range cells {
				cells[i] = base + i
			}
		})
	}
	if c.Fills() != 2 {
		t.Fatalf("fills: got %d want 2", c.Fills())
	}
	for _, x := range []int{-256, -1, 0, 255} {
		if got := c.Get(x); got != x {
			t.Fatalf("Get(%d): got %d", x, got)
		}
	}
}

func TestRegionDataCache(t *testing.T) {
	c := NewRegionDataCache[[]int]()
	r := coord.RegionVec{X: 3, Y: -2}
	c.Populate(r, 2, func(v *[]int) { *v = append(*v, 1, 2) })
	c.Populate(r, 2, func(v *[]int) { *v = append(*v, 3) })
	if got := *c.Get(r); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("Get: got %v", got)
	}
}

func TestFlattenChunkAreas(t *testing.T) {
	areas := []coord.ChunkArea{
		{Min: coord.ChunkVec{X: 0, Y: 0}, Max: coord.ChunkVec{X: 2, Y: 1}},
		{Min: coord.ChunkVec{X: 1, Y: 0}, Max: coord.ChunkVec{X: 3, Y: 1}},
		{Min: coord.ChunkVec{X: 0, Y: 0}, Max: coord.ChunkVec{X: 2, Y: 1}},
	}
	got := FlattenChunkAreas(areas)
	want := []coord.ChunkVec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FlattenChunkAreas: got %v want %v", got, want)
	}
}

func TestFlattenRegionSpans(t *testing.T) {
	spans := []coord.RegionSpanX{{Min: 3, Max: 5}, {Min: -1, Max: 1}, {Min: 0, Max: 4}, {Min: 7, Max: 7}, {Min: 8, Max: 9}}
	got := FlattenRegionSpans(spans)
	want := []int{-1, 0, 1, 2, 3, 4, 8}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FlattenRegionSpans: got %v want %v", got, want)
	}
	if len(FlattenRegionSpans(nil)) != 0 {
		t.Fatalf("empty input should flatten to nothing")
	}
}
