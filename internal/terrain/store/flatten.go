package store

import (
	"sort"

	"terragen.ai/internal/terrain/coord"
)

// FlattenChunkAreas expands overlapping areas into the unique chunks they
// cover, sorted by x then y.
func FlattenChunkAreas(areas []coord.ChunkArea) []coord.ChunkVec {
	seen := map[coord.ChunkVec]struct{}{}
	var out []coord.ChunkVec
	for _, a := range areas {
		a.Each(func(c coord.ChunkVec) {
			if _, ok := seen[c]; ok {
				return
			}
			seen[c] = struct{}{}
			out = append(out, c)
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// FlattenRegionSpans merges spans into the ascending list of region columns
// they cover. Each column appears once.
func FlattenRegionSpans(spans []coord.RegionSpanX) []int {
	sorted := make([]coord.RegionSpanX, 0, len(spans))
	for _, s := range spans {
		if !s.Empty() {
			sorted = append(sorted, s)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	var out []int
	if len(sorted) == 0 {
		return out
	}
	last := sorted[0].Min
	for _, s := range sorted {
		x := s.Min
		if last > x {
			x = last
		}
		for ; x < s.Max; x++ {
			out = append(out, x)
		}
		if s.Max > last {
			last = s.Max
		}
	}
	return out
}
