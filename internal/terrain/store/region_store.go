// Package store holds the sparse, region-keyed caches every terrain layer
// writes into.
package store

import (
	"math/bits"
	"unsafe"

	"terragen.ai/internal/terrain/assert"
)

// SeqNum is the generation batch counter used for cache aging.
type SeqNum uint64

// RegionStore is a fixed array of cells plus a populated bitmap. Cell data is
// only written through Populate so each cell is filled at most once.
type RegionStore[T any] struct {
	data      []T
	populated []uint64
	filled    int
}

func NewRegionStore[T any](cells int) *RegionStore[T] {
	return &RegionStore[T]{
		data:      make([]T, cells),
		populated: make([]uint64, (cells+63)/64),
	}
}

func (s *RegionStore[T]) Len() int { return len(s.data) }

// At returns a pointer to cell i without checking population.
func (s *RegionStore[T]) At(i int) *T {
	assert.That(i >= 0 && i < len(s.data), "store index %d outside [0,%d)", i, len(s.data))
	return &s.data[i]
}

// Get reads a populated cell.
func (s *RegionStore[T]) Get(i int) T {
	assert.That(i >= 0 && i < len(s.data), "store index %d outside [0,%d)", i, len(s.data))
	assert.That(s.IsPopulated(i), "read of unpopulated cell %d", i)
	return s.data[i]
}

func (s *RegionStore[T]) IsPopulated(i int) bool {
	return s.populated[i>>6]&(1<<(uint(i)&63)) != 0
}

// Populate runs fill for cell i unless it is already populated. It reports
// whether fill ran.
func (s *RegionStore[T]) Populate(i int, fill func(*T)) bool {
	if s.IsPopulated(i) {
		return false
	}
	fill(s.At(i))
	s.populated[i>>6] |= 1 << (uint(i) & 63)
	s.filled++
	return true
}

// Full reports whether every cell is populated.
func (s *RegionStore[T]) Full() bool { return s.filled == len(s.data) }

// PopulateAll fills every cell in one call unless the store is already full.
func (s *RegionStore[T]) PopulateAll(fill func(cells []T)) bool {
	if s.Full() {
		return false
	}
	assert.That(s.filled == 0, "bulk populate over %d partially filled cells", s.filled)
	fill(s.data)
	for i := range s.data {
		s.populated[i>>6] |= 1 << (uint(i) & 63)
	}
	s.filled = len(s.data)
	return true
}

// PopulatedCount is the number of filled cells.
func (s *RegionStore[T]) PopulatedCount() int {
	n := 0
	for _, w := range s.populated {
		n += bits.OnesCount64(w)
	}
	return n
}

// SizeBytes approximates the memory held by the store.
func (s *RegionStore[T]) SizeBytes() int {
	var zero T
	return len(s.data)*int(unsafe.Sizeof(zero)) + len(s.populated)*8
}
