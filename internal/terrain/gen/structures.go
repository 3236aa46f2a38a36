package gen

import (
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/world"
)

// structuresLayer has no cache of its own. It makes sure structure info and
// blocks exist for a batch; apply then writes into the world.
type structuresLayer struct {
	onDemand
	g *Generator
}

// request covers area plus one chunk of margin for structure info, since a
// structure starting in a neighbour can reach into area.
func (l *structuresLayer) request(area coord.ChunkArea) {
	l.g.dep(LayerBlendedBiomeStructures, LayerBlendedBiomeStructureInfo)
	l.g.structInfo.request(area.Expand(1))
	l.g.dep(LayerBlendedBiomeStructures, LayerBlendedBiomeBlock)
	l.g.blocks.request(area)
}

// apply places every structure that touches a fresh chunk, writing only into
// fresh chunks. A chunk is fresh in exactly one batch, so each structure
// lands in each chunk once. It returns the number of structures placed.
func (l *structuresLayer) apply(terr *world.Terrain, area coord.ChunkArea, fresh map[coord.ChunkVec]bool) int {
	if len(fresh) == 0 {
		return 0
	}
	ed := &terrainEditor{terr: terr, realm: l.g.cfg.Realm, fresh: fresh}
	n := 0
	area.Expand(1).Each(func(c coord.ChunkVec) {
		for _, info := range l.g.structInfo.get(c) {
			box := coord.BlockArea{Min: info.Min, Max: info.Max}.ToChunkArea()
			if !touchesAny(box, fresh) {
				continue
			}
			l.g.biomes.Structure(info, ed)
			n++
		}
	})
	return n
}

func touchesAny(box coord.ChunkArea, set map[coord.ChunkVec]bool) bool {
	hit := false
	box.Each(func(c coord.ChunkVec) {
		if set[c] {
			hit = true
		}
	})
	return hit
}

// terrainEditor writes structures into one realm of the world, restricted to
// the chunks loaded by the current batch.
type terrainEditor struct {
	terr  *world.Terrain
	realm coord.RealmID
	fresh map[coord.ChunkVec]bool
}

func (e *terrainEditor) Block(b coord.BlockVec) chunk.BlockID {
	return e.terr.Block(e.realm, b)
}

func (e *terrainEditor) SetBlock(b coord.BlockVec, id chunk.BlockID) {
	c := coord.BlockToChunk(b)
	if !e.fresh[c] {
		return
	}
	e.terr.Chunk(coord.UniversalChunkCoord{Realm: e.realm, Pos: c}).SetIdx(coord.BlockToChunkIndex(b), id)
}

func (e *terrainEditor) AddEntity(ent chunk.BlockEntity) {
	c := coord.BlockToChunk(coord.BlockVec{X: ent.X, Y: ent.Y})
	if !e.fresh[c] {
		return
	}
	e.terr.AddEntity(coord.UniversalChunkCoord{Realm: e.realm, Pos: c}, ent)
}
