// Package gen is the layered terrain generator. Each layer caches one kind of
// derived data per region. A batch first walks the requested layers depth
// first, recording the ranges each one needs, then generates every layer
// bottom up in dependency order so a layer only ever reads populated data.
//
// A Generator is not safe for concurrent use.
package gen

import (
	"time"
	"unsafe"

	"terragen.ai/internal/terrain/assert"
	"terragen.ai/internal/terrain/biome"
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/mathx"
	"terragen.ai/internal/terrain/noise"
	"terragen.ai/internal/terrain/store"
	"terragen.ai/internal/terrain/world"
)

const (
	sizeOfRawChunk   = int(unsafe.Sizeof(rawChunk{}))
	sizeOfBlendChunk = int(unsafe.Sizeof(blendChunk{}))
	sizeOfBasisChunk = int(unsafe.Sizeof(basisChunk{}))
	sizeOfMapChunk   = int(unsafe.Sizeof(chunk.MapChunk{}))
)

// baseHeightSeed decorrelates the base height curve from the biome noise.
const baseHeightSeed = 21212

type Config struct {
	Seed  int64
	Realm coord.RealmID
	// Retention is how many batches a region may go unused before its cached
	// layer data is evicted. 0 keeps everything.
	Retention    uint64
	ChunkMarkers bool
}

type Generator struct {
	cfg    Config
	seq    store.SeqNum
	biomes *biome.Set
	raw    *biome.Raw
	perlin noise.Perlin1D

	baseHeight *baseHeightLayer
	biomeRaw   *biomeRawLayer
	rawWeights *rawWeightsLayer
	weights    *blendedWeightsLayer
	height     *blendedHeightLayer
	basis      *basisLayer
	blocks     *blockLayer
	structInfo *structureInfoLayer
	structures *structuresLayer

	layers  [layerCount]layer
	batch   [layerCount]int
	total   [layerCount]uint64
	dropped uint64
}

func New(cfg Config) *Generator {
	g := &Generator{
		cfg:    cfg,
		biomes: biome.NewSet(cfg.Seed, biome.Options{ChunkMarkers: cfg.ChunkMarkers}),
		raw:    biome.NewRaw(cfg.Seed),
		perlin: noise.NewPerlin1D(mathx.LCG(cfg.Seed ^ baseHeightSeed)),
	}
	g.baseHeight = newBaseHeightLayer(g)
	g.biomeRaw = &biomeRawLayer{g: g}
	g.rawWeights = newRawWeightsLayer(g)
	g.weights = newBlendedWeightsLayer(g)
	g.height = newBlendedHeightLayer(g)
	g.basis = newBasisLayer(g)
	g.blocks = newBlockLayer(g)
	g.structInfo = newStructureInfoLayer(g)
	g.structures = &structuresLayer{g: g}

	g.layers = [layerCount]layer{
		LayerWorldBaseHeight:           g.baseHeight,
		LayerBiomeRaw:                  g.biomeRaw,
		LayerRawBiomeWeights:           g.rawWeights,
		LayerBlendedBiomeWeights:       g.weights,
		LayerBlendedBiomeHeight:        g.height,
		LayerBlendedBiomeBasis:         g.basis,
		LayerBlendedBiomeBlock:         g.blocks,
		LayerBlendedBiomeStructureInfo: g.structInfo,
		LayerBlendedBiomeStructures:    g.structures,
	}
	return g
}

func (g *Generator) Config() Config { return g.cfg }

// Seq is the number of the last batch.
func (g *Generator) Seq() uint64 { return uint64(g.seq) }

// dep checks that a request follows an edge of the static layer graph.
func (g *Generator) dep(from, to LayerID) {
	assert.That(declared(from, to), "layer %s requested undeclared dependency %s", from, to)
}

func (g *Generator) count(id LayerID, n int) {
	g.batch[id] += n
	g.total[id] += uint64(n)
}

func (g *Generator) beginBatch() {
	g.seq++
	g.batch = [layerCount]int{}
}

// generateAll runs the generate phase over every layer in dependency order.
func (g *Generator) generateAll() {
	for _, id := range generateOrder {
		g.count(id, g.layers[id].generatePending(g.seq))
	}
}

func (g *Generator) finishBatch(st *BatchStats, start time.Time) {
	if g.cfg.Retention > 0 && uint64(g.seq) > g.cfg.Retention {
		st.Evicted = g.ClearCache(g.seq - store.SeqNum(g.cfg.Retention))
	}
	st.Seq = uint64(g.seq)
	st.Generated = make(map[string]int, layerCount)
	for id, n := range g.batch {
		st.Generated[LayerID(id).String()] = n
	}
	st.Duration = time.Since(start)
}

// Prepare runs one batch that leaves blocks, basis, blends, heights and
// structure info readable for every block of area. Reads stay valid until
// the next batch.
func (g *Generator) Prepare(area coord.ChunkArea) BatchStats {
	start := time.Now()
	st := BatchStats{Realm: g.cfg.Realm, Area: area}
	if area.Empty() {
		return st
	}
	g.beginBatch()
	g.blocks.request(area)
	g.basis.request(area)
	g.weights.request(area)
	g.rawWeights.request(area)
	g.height.request(area.ToRegionSpan())
	g.structInfo.request(area)
	g.generateAll()
	g.finishBatch(&st, start)
	return st
}

// Generate fills every chunk of area that terr does not hold yet and lands
// the structures touching those chunks.
func (g *Generator) Generate(terr *world.Terrain, area coord.ChunkArea) BatchStats {
	start := time.Now()
	st := BatchStats{Realm: g.cfg.Realm, Area: area}
	if area.Empty() {
		return st
	}
	g.beginBatch()
	g.structures.request(area)
	g.generateAll()

	fresh := map[coord.ChunkVec]bool{}
	area.Each(func(c coord.ChunkVec) {
		u := coord.UniversalChunkCoord{Realm: g.cfg.Realm, Pos: c}
		if terr.IsChunkLoaded(u) {
			return
		}
		*terr.Chunk(u) = *g.blocks.chunk(c)
		terr.MarkLoaded(u)
		fresh[c] = true
		st.NewChunks = append(st.NewChunks, c)
	})
	st.Structures = g.structures.apply(terr, area, fresh)
	g.finishBatch(&st, start)
	return st
}

// ClearCache evicts, from every layer, regions last used before minAge.
func (g *Generator) ClearCache(minAge store.SeqNum) int {
	n := 0
	for _, l := range g.layers {
		n += l.clearCache(minAge)
	}
	return n
}

// CacheSizeBytes approximates the memory held by all layer caches.
func (g *Generator) CacheSizeBytes() int {
	n := 0
	for _, l := range g.layers {
		n += l.cacheSizeBytes()
	}
	return n
}

// GenerateCount is how many units layer id has generated since New.
func (g *Generator) GenerateCount(id LayerID) uint64 { return g.total[id] }

// Dropped is how many blend contributors were discarded by the per-block cap.
func (g *Generator) Dropped() uint64 { return g.dropped }

// IsCached reports whether the block layer holds chunk c.
func (g *Generator) IsCached(c coord.ChunkVec) bool {
	return g.blocks.cache.IsPopulated(c, g.seq)
}

// Reads. Each asserts that its layer has populated the coordinate.

func (g *Generator) BaseHeight(x int) int { return g.baseHeight.get(x) }

func (g *Generator) Height(x int) int { return g.height.get(x) }

func (g *Generator) RawBiome(b coord.BlockVec) biome.RawInfo { return g.biomeRaw.get(b) }

func (g *Generator) Blend(b coord.BlockVec) biome.Blend { return g.weights.get(b) }

func (g *Generator) Basis(b coord.BlockVec) biome.BasisInfo { return g.basis.get(b) }

func (g *Generator) Block(b coord.BlockVec) chunk.BlockID { return g.blocks.get(b) }

func (g *Generator) Chunk(c coord.ChunkVec) chunk.MapChunk { return *g.blocks.chunk(c) }

func (g *Generator) StructureInfo(c coord.ChunkVec) []biome.StructureInfo { return g.structInfo.get(c) }

// BatchStats describes one batch.
type BatchStats struct {
	Seq        uint64
	Realm      coord.RealmID
	Area       coord.ChunkArea
	Generated  map[string]int
	NewChunks  []coord.ChunkVec
	Structures int
	Evicted    int
	Duration   time.Duration

	// Digest hashes the returned area's blocks and entities. The generator
	// leaves it empty; the realm service fills it in.
	Digest string
}

// GeneratedTotal sums the per-layer generate counts.
func (s BatchStats) GeneratedTotal() int {
	n := 0
	for _, v := range s.Generated {
		n += v
	}
	return n
}
