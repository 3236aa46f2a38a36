package coord

import "terragen.ai/internal/terrain/mathx"

type BlockArea struct{ Min, Max BlockVec }
type ChunkArea struct{ Min, Max ChunkVec }
type RegionArea struct{ Min, Max RegionVec }

// Span types are horizontal ranges used by per-column layers.
type BlockSpanX struct{ Min, Max int }
type ChunkSpanX struct{ Min, Max int }
type RegionSpanX struct{ Min, Max int }

func (a ChunkArea) Empty() bool  { return a.Min.X >= a.Max.X || a.Min.Y >= a.Max.Y }
func (a RegionArea) Empty() bool { return a.Min.X >= a.Max.X || a.Min.Y >= a.Max.Y }
func (a BlockArea) Empty() bool  { return a.Min.X >= a.Max.X || a.Min.Y >= a.Max.Y }

func (a ChunkArea) Size() ChunkVec { return ChunkVec{a.Max.X - a.Min.X, a.Max.Y - a.Min.Y} }

func (a ChunkArea) Count() int {
	if a.Empty() {
		return 0
	}
	s := a.Size()
	return s.X * s.Y
}

// InBounds reports whether every chunk of a lies within MaxChunkCoord.
// Max is exclusive, so it may sit one past the limit.
func (a ChunkArea) InBounds() bool {
	return a.Min.X >= -MaxChunkCoord && a.Min.Y >= -MaxChunkCoord &&
		a.Max.X <= MaxChunkCoord+1 && a.Max.Y <= MaxChunkCoord+1
}

func (a ChunkArea) Contains(c ChunkVec) bool {
	return c.X >= a.Min.X && c.X < a.Max.X && c.Y >= a.Min.Y && c.Y < a.Max.Y
}

func (a ChunkArea) Expand(n int) ChunkArea {
	return ChunkArea{
		Min: ChunkVec{a.Min.X - n, a.Min.Y - n},
		Max: ChunkVec{a.Max.X + n, a.Max.Y + n},
	}
}

// Intersect returns the overlap, which may be empty.
func (a ChunkArea) Intersect(b ChunkArea) ChunkArea {
	return ChunkArea{
		Min: ChunkVec{mathx.MaxInt(a.Min.X, b.Min.X), mathx.MaxInt(a.Min.Y, b.Min.Y)},
		Max: ChunkVec{mathx.MinInt(a.Max.X, b.Max.X), mathx.MinInt(a.Max.Y, b.Max.Y)},
	}
}

// Each visits chunks column by column.
func (a ChunkArea) Each(fn func(ChunkVec)) {
	for x := a.Min.X; x < a.Max.X; x++ {
		for y := a.Min.Y; y < a.Max.Y; y++ {
			fn(ChunkVec{x, y})
		}
	}
}

// ToRegionArea returns the smallest region area covering a. The exclusive max
// is converted as (max-1) then re-incremented so the last row is kept.
func (a ChunkArea) ToRegionArea() RegionArea {
	if a.Empty() {
		return RegionArea{}
	}
	min := ChunkToRegion(a.Min)
	last := ChunkToRegion(ChunkVec{a.Max.X - 1, a.Max.Y - 1})
	return RegionArea{Min: min, Max: RegionVec{last.X + 1, last.Y + 1}}
}

func (a ChunkArea) ToChunkSpan() ChunkSpanX { return ChunkSpanX{Min: a.Min.X, Max: a.Max.X} }

func (a ChunkArea) ToRegionSpan() RegionSpanX { return a.ToChunkSpan().ToRegionSpan() }

func (a ChunkArea) ToBlockArea() BlockArea {
	return BlockArea{Min: ChunkToBlock(a.Min), Max: ChunkToBlock(a.Max)}
}

// ToChunkArea returns the smallest chunk area covering the block area.
func (a BlockArea) ToChunkArea() ChunkArea {
	if a.Empty() {
		return ChunkArea{}
	}
	min := BlockToChunk(a.Min)
	last := BlockToChunk(BlockVec{a.Max.X - 1, a.Max.Y - 1})
	return ChunkArea{Min: min, Max: ChunkVec{last.X + 1, last.Y + 1}}
}

func (a RegionArea) Each(fn func(RegionVec)) {
	for x := a.Min.X; x < a.Max.X; x++ {
		for y := a.Min.Y; y < a.Max.Y; y++ {
			fn(RegionVec{x, y})
		}
	}
}

func (a RegionArea) ToChunkArea() ChunkArea {
	return ChunkArea{Min: RegionToChunk(a.Min), Max: RegionToChunk(a.Max)}
}

func (s ChunkSpanX) Empty() bool  { return s.Min >= s.Max }
func (s RegionSpanX) Empty() bool { return s.Min >= s.Max }
func (s BlockSpanX) Empty() bool  { return s.Min >= s.Max }

func (s ChunkSpanX) ToRegionSpan() RegionSpanX {
	if s.Empty() {
		return RegionSpanX{}
	}
	return RegionSpanX{
		Min: mathx.FloorDiv(s.Min, RegionSize),
		Max: mathx.FloorDiv(s.Max-1, RegionSize) + 1,
	}
}

func (s BlockSpanX) ToRegionSpan() RegionSpanX {
	if s.Empty() {
		return RegionSpanX{}
	}
	return RegionSpanX{
		Min: BlockXToRegionX(s.Min),
		Max: BlockXToRegionX(s.Max-1) + 1,
	}
}

func (s RegionSpanX) ToBlockSpan() BlockSpanX {
	return BlockSpanX{Min: s.Min * BlocksPerRegion, Max: s.Max * BlocksPerRegion}
}
