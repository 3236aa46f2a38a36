package gen

import (
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/store"
)

// layer is what the generate phase needs from every layer. Requests are typed
// per layer and go through the concrete fields on Generator.
type layer interface {
	// generatePending partitions the ranges recorded this batch, drops units
	// that are already populated and generates the rest. It returns the
	// number of units generated.
	generatePending(seq store.SeqNum) int
	clearCache(minAge store.SeqNum) int
	cacheSizeBytes() int
}

// onDemand layers compute on every get and have nothing to generate.
type onDemand struct{}

func (onDemand) generatePending(store.SeqNum) int { return 0 }
func (onDemand) clearCache(store.SeqNum) int      { return 0 }
func (onDemand) cacheSizeBytes() int              { return 0 }

// chunkLayer is the bookkeeping shared by layers partitioned per chunk.
type chunkLayer[T any] struct {
	cache    *store.ChunkDataCache[T]
	pending  []coord.ChunkArea
	generate func(c coord.ChunkVec, seq store.SeqNum)
}

func newChunkLayer[T any]() chunkLayer[T] {
	return chunkLayer[T]{cache: store.NewChunkDataCache[T]()}
}

// record reserves area and remembers it for the generate phase. It reports
// whether any chunk in area still needs generating, in which case the caller
// must request its dependencies.
func (l *chunkLayer[T]) record(area coord.ChunkArea, seq store.SeqNum) bool {
	if area.Empty() {
		return false
	}
	l.cache.Reserve(area, seq)
	missing := false
	area.Each(func(c coord.ChunkVec) {
		if !l.cache.IsPopulated(c, seq) {
			missing = true
		}
	})
	if missing {
		l.pending = append(l.pending, area)
	}
	return missing
}

func (l *chunkLayer[T]) generatePending(seq store.SeqNum) int {
	if len(l.pending) == 0 {
		return 0
	}
	units := store.FlattenChunkAreas(l.pending)
	l.pending = l.pending[:0]
	n := 0
	for _, c := range units {
		if l.cache.IsPopulated(c, seq) {
			continue
		}
		l.generate(c, seq)
		n++
	}
	return n
}

func (l *chunkLayer[T]) clearCache(minAge store.SeqNum) int { return l.cache.ClearCache(minAge) }

// spanLayer is the bookkeeping shared by layers partitioned per region column.
type spanLayer[T any] struct {
	cache    *store.BlockSpanCache[T]
	pending  []coord.RegionSpanX
	generate func(rx int, seq store.SeqNum)
}

func newSpanLayer[T any]() spanLayer[T] {
	return spanLayer[T]{cache: store.NewBlockSpanCache[T]()}
}

func (l *spanLayer[T]) record(span coord.RegionSpanX, seq store.SeqNum) bool {
	if span.Empty() {
		return false
	}
	l.cache.Reserve(span, seq)
	missing := false
	for rx := span.Min; rx < span.Max; rx++ {
		if !l.cache.IsPopulated(rx, seq) {
			missing = true
		}
	}
	if missing {
		l.pending = append(l.pending, span)
	}
	return missing
}

func (l *spanLayer[T]) generatePending(seq store.SeqNum) int {
	if len(l.pending) == 0 {
		return 0
	}
	units := store.FlattenRegionSpans(l.pending)
	l.pending = l.pending[:0]
	n := 0
	for _, rx := range units {
		if l.cache.IsPopulated(rx, seq) {
			continue
		}
		l.generate(rx, seq)
		n++
	}
	return n
}

func (l *spanLayer[T]) clearCache(minAge store.SeqNum) int { return l.cache.ClearCache(minAge) }
func (l *spanLayer[T]) cacheSizeBytes() int                { return l.cache.CacheSizeBytes() }
