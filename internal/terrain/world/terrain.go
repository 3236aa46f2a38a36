// Package world holds generated chunks as world state, grouped into regions
// per realm.
package world

import (
	"sort"

	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
)

const regionChunks = coord.RegionSize * coord.RegionSize

type Region struct {
	Coord    coord.UniversalRegionCoord
	Chunks   [regionChunks]chunk.MapChunk
	Loaded   [regionChunks]bool
	Entities [regionChunks][]chunk.BlockEntity
}

func regionIndex(c coord.ChunkVec) int {
	idx := coord.ChunkToRegionIndex(c)
	return idx.X + idx.Y*coord.RegionSize
}

func (r *Region) ChunkAt(idx coord.ChunkIdx) *chunk.MapChunk {
	return &r.Chunks[idx.X+idx.Y*coord.RegionSize]
}

func (r *Region) LoadedCount() int {
	n := 0
	for _, l := range r.Loaded {
		if l {
			n++
		}
	}
	return n
}

type Terrain struct {
	Regions map[coord.UniversalRegionCoord]*Region
}

func NewTerrain() *Terrain {
	return &Terrain{Regions: map[coord.UniversalRegionCoord]*Region{}}
}

// Region returns the region, allocating it on first use.
func (t *Terrain) Region(u coord.UniversalRegionCoord) *Region {
	r := t.Regions[u]
	if r == nil {
		r = &Region{Coord: u}
		t.Regions[u] = r
	}
	return r
}

func (t *Terrain) FindRegion(u coord.UniversalRegionCoord) (*Region, bool) {
	r, ok := t.Regions[u]
	return r, ok
}

func (t *Terrain) Chunk(u coord.UniversalChunkCoord) *chunk.MapChunk {
	return &t.Region(u.Region()).Chunks[regionIndex(u.Pos)]
}

func (t *Terrain) IsChunkLoaded(u coord.UniversalChunkCoord) bool {
	r, ok := t.Regions[u.Region()]
	return ok && r.Loaded[regionIndex(u.Pos)]
}

func (t *Terrain) MarkLoaded(u coord.UniversalChunkCoord) {
	t.Region(u.Region()).Loaded[regionIndex(u.Pos)] = true
}

func (t *Terrain) Entities(u coord.UniversalChunkCoord) []chunk.BlockEntity {
	r, ok := t.Regions[u.Region()]
	if !ok {
		return nil
	}
	return r.Entities[regionIndex(u.Pos)]
}

func (t *Terrain) AddEntity(u coord.UniversalChunkCoord, e chunk.BlockEntity) {
	r := t.Region(u.Region())
	i := regionIndex(u.Pos)
	r.Entities[i] = append(r.Entities[i], e)
}

// Block reads a single block; unloaded chunks read as air.
func (t *Terrain) Block(realm coord.RealmID, b coord.BlockVec) chunk.BlockID {
	u := coord.UniversalBlockCoord{Realm: realm, Pos: b}.Chunk()
	if !t.IsChunkLoaded(u) {
		return chunk.Air
	}
	return t.Chunk(u).AtIdx(coord.BlockToChunkIndex(b))
}

func (t *Terrain) EraseRegion(u coord.UniversalRegionCoord) {
	delete(t.Regions, u)
}

// RegionKeys lists regions sorted by realm, x, then y.
func (t *Terrain) RegionKeys() []coord.UniversalRegionCoord {
	keys := make([]coord.UniversalRegionCoord, 0, len(t.Regions))
	for k := range t.Regions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Realm != b.Realm {
			return a.Realm < b.Realm
		}
		if a.Pos.X != b.Pos.X {
			return a.Pos.X < b.Pos.X
		}
		return a.Pos.Y < b.Pos.Y
	})
	return keys
}
