// Package coord converts between block, chunk and region coordinates.
//
// The world is a 2D side view: X is horizontal and Y points up. A chunk is
// ChunkSize x ChunkSize blocks and a region is RegionSize x RegionSize chunks.
// All ranges are min-inclusive, max-exclusive.
package coord

import (
	"fmt"

	"terragen.ai/internal/terrain/mathx"
)

const (
	ChunkSize       = 16
	RegionSize      = 16
	BlocksPerRegion = ChunkSize * RegionSize

	// MaxChunkCoord bounds |x| and |y| of any chunk the generator accepts.
	// Block coordinates then stay well inside int32, which the lattice
	// hashes truncate to.
	MaxChunkCoord = 1 << 26
)

// RealmID names an independent coordinate namespace.
type RealmID uint8

type BlockVec struct{ X, Y int }
type ChunkVec struct{ X, Y int }
type RegionVec struct{ X, Y int }

// BlockIdx is a block offset inside a chunk.
type BlockIdx struct{ X, Y int }

// ChunkIdx is a chunk offset inside a region.
type ChunkIdx struct{ X, Y int }

func (v BlockVec) Add(o BlockVec) BlockVec { return BlockVec{v.X + o.X, v.Y + o.Y} }
func (v BlockVec) Sub(o BlockVec) BlockVec { return BlockVec{v.X - o.X, v.Y - o.Y} }
func (v ChunkVec) Add(o ChunkVec) ChunkVec { return ChunkVec{v.X + o.X, v.Y + o.Y} }

func (v BlockVec) String() string  { return fmt.Sprintf("b(%d,%d)", v.X, v.Y) }
func (v ChunkVec) String() string  { return fmt.Sprintf("c(%d,%d)", v.X, v.Y) }
func (v RegionVec) String() string { return fmt.Sprintf("r(%d,%d)", v.X, v.Y) }

func BlockToChunk(b BlockVec) ChunkVec {
	return ChunkVec{mathx.FloorDiv(b.X, ChunkSize), mathx.FloorDiv(b.Y, ChunkSize)}
}

func BlockToChunkIndex(b BlockVec) BlockIdx {
	return BlockIdx{mathx.Mod(b.X, ChunkSize), mathx.Mod(b.Y, ChunkSize)}
}

func BlockToRegion(b BlockVec) RegionVec { return ChunkToRegion(BlockToChunk(b)) }

func ChunkToRegion(c ChunkVec) RegionVec {
	return RegionVec{mathx.FloorDiv(c.X, RegionSize), mathx.FloorDiv(c.Y, RegionSize)}
}

func ChunkToRegionIndex(c ChunkVec) ChunkIdx {
	return ChunkIdx{mathx.Mod(c.X, RegionSize), mathx.Mod(c.Y, RegionSize)}
}

// ChunkToBlock returns the minimum block of the chunk.
func ChunkToBlock(c ChunkVec) BlockVec { return BlockVec{c.X * ChunkSize, c.Y * ChunkSize} }

// RegionToChunk returns the minimum chunk of the region.
func RegionToChunk(r RegionVec) ChunkVec { return ChunkVec{r.X * RegionSize, r.Y * RegionSize} }

func RegionToBlock(r RegionVec) BlockVec { return ChunkToBlock(RegionToChunk(r)) }

// RegionIndexToChunk is the inverse of ChunkToRegion+ChunkToRegionIndex.
func RegionIndexToChunk(r RegionVec, idx ChunkIdx) ChunkVec {
	base := RegionToChunk(r)
	return ChunkVec{base.X + idx.X, base.Y + idx.Y}
}

// BlockXToRegionX coarsens a block column to its region column.
func BlockXToRegionX(x int) int { return mathx.FloorDiv(x, BlocksPerRegion) }

// BlockXToRegionIndex is the column offset of x inside its region.
func BlockXToRegionIndex(x int) int { return mathx.Mod(x, BlocksPerRegion) }

type UniversalRegionCoord struct {
	Realm RealmID
	Pos   RegionVec
}

type UniversalChunkCoord struct {
	Realm RealmID
	Pos   ChunkVec
}

type UniversalBlockCoord struct {
	Realm RealmID
	Pos   BlockVec
}

func (u UniversalChunkCoord) Region() UniversalRegionCoord {
	return UniversalRegionCoord{Realm: u.Realm, Pos: ChunkToRegion(u.Pos)}
}

func (u UniversalBlockCoord) Chunk() UniversalChunkCoord {
	return UniversalChunkCoord{Realm: u.Realm, Pos: BlockToChunk(u.Pos)}
}
