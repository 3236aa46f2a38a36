package store

import (
	"fmt"

	"terragen.ai/internal/terrain/assert"
)

func panicMissing(k any) {
	panic(fmt.Sprintf("terrain invariant: no cache store reserved for %v", k))
}

func assertPopulated[T any](s *RegionStore[T], i int, at any) {
	assert.That(s.IsPopulated(i), "read of unpopulated cache cell at %v", at)
}
