package store

import (
	"golang.org/x/exp/maps"

	"terragen.ai/internal/terrain/coord"
)

// sparse is the shared core of every cache: a lazily allocated store per key
// and the matching age map.
type sparse[K comparable, T any] struct {
	cells  int
	stores map[K]*RegionStore[T]
	ages   Ages[K]
	fills  uint64
}

func newSparse[K comparable, T any](cells int) sparse[K, T] {
	return sparse[K, T]{
		cells:  cells,
		stores: map[K]*RegionStore[T]{},
		ages:   Ages[K]{},
	}
}

func (c *sparse[K, T]) reserve(k K, seq SeqNum) *RegionStore[T] {
	s := c.stores[k]
	if s == nil {
		s = NewRegionStore[T](c.cells)
		c.stores[k] = s
	}
	c.ages.Touch(k, seq)
	return s
}

func (c *sparse[K, T]) isPopulated(k K, i int, seq SeqNum) bool {
	s := c.stores[k]
	if s == nil {
		return false
	}
	c.ages.Touch(k, seq)
	return s.IsPopulated(i)
}

func (c *sparse[K, T]) populate(k K, i int, seq SeqNum, fill func(*T)) bool {
	s := c.reserve(k, seq)
	if s.Populate(i, fill) {
		c.fills++
		return true
	}
	return false
}

func (c *sparse[K, T]) store(k K) *RegionStore[T] {
	s := c.stores[k]
	if s == nil {
		panicMissing(k)
	}
	return s
}

func (c *sparse[K, T]) clear(minAge SeqNum) int {
	expired := c.ages.Expired(minAge)
	for _, k := range expired {
		delete(c.stores, k)
		delete(c.ages, k)
	}
	return len(expired)
}

func (c *sparse[K, T]) sizeBytes() int {
	if len(c.stores) == 0 {
		return 0
	}
	var one *RegionStore[T]
	for _, s := range c.stores {
		one = s
		break
	}
	return len(c.stores) * one.SizeBytes()
}

func (c *sparse[K, T]) keys() []K { return maps.Keys(c.stores) }

func (c *sparse[K, T]) populatedCells() int {
	n := 0
	for _, s := range c.stores {
		n += s.filled
	}
	return n
}

func (c *sparse[K, T]) lastUsed(k K) (SeqNum, bool) {
	seq, ok := c.ages[k]
	return seq, ok
}

// ChunkDataCache holds one T per chunk, allocated a region at a time.
type ChunkDataCache[T any] struct {
	sparse[coord.RegionVec, T]
}

func NewChunkDataCache[T any]() *ChunkDataCache[T] {
	return &ChunkDataCache[T]{newSparse[coord.RegionVec, T](coord.RegionSize * coord.RegionSize)}
}

func chunkCell(c coord.ChunkVec) (coord.RegionVec, int) {
	idx := coord.ChunkToRegionIndex(c)
	return coord.ChunkToRegion(c), idx.X + idx.Y*coord.RegionSize
}

// Reserve makes sure every region touched by area has a store stamped with seq.
func (c *ChunkDataCache[T]) Reserve(area coord.ChunkArea, seq SeqNum) {
	area.ToRegionArea().Each(func(r coord.RegionVec) { c.reserve(r, seq) })
}

func (c *ChunkDataCache[T]) IsPopulated(ch coord.ChunkVec, seq SeqNum) bool {
	r, i := chunkCell(ch)
	return c.isPopulated(r, i, seq)
}

func (c *ChunkDataCache[T]) Populate(ch coord.ChunkVec, seq SeqNum, fill func(*T)) bool {
	r, i := chunkCell(ch)
	return c.populate(r, i, seq, fill)
}

func (c *ChunkDataCache[T]) Get(ch coord.ChunkVec) *T {
	r, i := chunkCell(ch)
	s := c.store(r)
	assertPopulated(s, i, ch)
	return s.At(i)
}

func (c *ChunkDataCache[T]) ClearCache(minAge SeqNum) int { return c.clear(minAge) }
func (c *ChunkDataCache[T]) CacheSizeBytes() int          { return c.sizeBytes() }
func (c *ChunkDataCache[T]) Fills() uint64                { return c.fills }
func (c *ChunkDataCache[T]) Regions() []coord.RegionVec   { return c.keys() }
func (c *ChunkDataCache[T]) PopulatedCells() int          { return c.populatedCells() }

func (c *ChunkDataCache[T]) LastUsed(r coord.RegionVec) (SeqNum, bool) { return c.lastUsed(r) }

// RegionDataCache holds a single T per region.
type RegionDataCache[T any] struct {
	sparse[coord.RegionVec, T]
}

func NewRegionDataCache[T any]() *RegionDataCache[T] {
	return &RegionDataCache[T]{newSparse[coord.RegionVec, T](1)}
}

func (c *RegionDataCache[T]) Reserve(area coord.RegionArea, seq SeqNum) {
	area.Each(func(r coord.RegionVec) { c.reserve(r, seq) })
}

func (c *RegionDataCache[T]) IsPopulated(r coord.RegionVec, seq SeqNum) bool {
	return c.isPopulated(r, 0, seq)
}

func (c *RegionDataCache[T]) Populate(r coord.RegionVec, seq SeqNum, fill func(*T)) bool {
	return c.populate(r, 0, seq, fill)
}

func (c *RegionDataCache[T]) Get(r coord.RegionVec) *T {
	s := c.store(r)
	assertPopulated(s, 0, r)
	return s.At(0)
}

func (c *RegionDataCache[T]) ClearCache(minAge SeqNum) int { return c.clear(minAge) }
func (c *RegionDataCache[T]) CacheSizeBytes() int          { return c.sizeBytes() }
func (c *RegionDataCache[T]) Fills() uint64                { return c.fills }

// BlockSpanCache holds one T per block column, allocated and populated a
// region column at a time.
type BlockSpanCache[T any] struct {
	sparse[int, T]
}

func NewBlockSpanCache[T any]() *BlockSpanCache[T] {
	return &BlockSpanCache[T]{newSparse[int, T](coord.BlocksPerRegion)}
}

func (c *BlockSpanCache[T]) Reserve(span coord.RegionSpanX, seq SeqNum) {
	for rx := span.Min; rx < span.Max; rx++ {
		c.reserve(rx, seq)
	}
}

// IsPopulated reports whether region column rx has been generated.
func (c *BlockSpanCache[T]) IsPopulated(rx int, seq SeqNum) bool {
	s := c.stores[rx]
	if s == nil {
		return false
	}
	c.ages.Touch(rx, seq)
	return s.Full()
}

// Populate fills a whole region column. fill receives the column's cells
// indexed by block offset inside the region.
func (c *BlockSpanCache[T]) Populate(rx int, seq SeqNum, fill func(cells []T)) bool {
	s := c.reserve(rx, seq)
	if !s.PopulateAll(fill) {
		return false
	}
	c.fills++
	return true
}

func (c *BlockSpanCache[T]) Get(x int) T {
	rx := coord.BlockXToRegionX(x)
	return c.store(rx).Get(coord.BlockXToRegionIndex(x))
}

func (c *BlockSpanCache[T]) ClearCache(minAge SeqNum) int { return c.clear(minAge) }
func (c *BlockSpanCache[T]) CacheSizeBytes() int          { return c.sizeBytes() }
func (c *BlockSpanCache[T]) Fills() uint64                { return c.fills }
