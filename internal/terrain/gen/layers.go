package gen

import (
	"math"

	"terragen.ai/internal/terrain/assert"
	"terragen.ai/internal/terrain/biome"
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/store"
)

func cellIndex(b coord.BlockVec) int {
	i := coord.BlockToChunkIndex(b)
	return i.X + i.Y*coord.ChunkSize
}

// eachBlock visits the blocks of chunk c with their cell index.
func eachBlock(c coord.ChunkVec, fn func(i int, b coord.BlockVec)) {
	min := coord.ChunkToBlock(c)
	for y := 0; y < coord.ChunkSize; y++ {
		for x := 0; x < coord.ChunkSize; x++ {
			fn(x+y*coord.ChunkSize, coord.BlockVec{X: min.X + x, Y: min.Y + y})
		}
	}
}

// baseHeightScale and baseHeightAmp shape the world's long-wavelength
// surface h0.
const (
	baseHeightScale = 0.00005
	baseHeightAmp   = 500
)

type baseHeightLayer struct {
	spanLayer[int]
	g *Generator
}

func newBaseHeightLayer(g *Generator) *baseHeightLayer {
	l := &baseHeightLayer{spanLayer: newSpanLayer[int](), g: g}
	l.spanLayer.generate = l.generateColumn
	return l
}

func (l *baseHeightLayer) request(span coord.RegionSpanX) {
	l.record(span, l.g.seq)
}

// requestAwait generates span before returning so a dependent can read it
// while it is still building its own requests.
func (l *baseHeightLayer) requestAwait(span coord.RegionSpanX) {
	l.request(span)
	l.g.count(LayerWorldBaseHeight, l.generatePending(l.g.seq))
}

func (l *baseHeightLayer) generateColumn(rx int, seq store.SeqNum) {
	base := rx * coord.BlocksPerRegion
	l.cache.Populate(rx, seq, func(cells []int) {
		for i := range cells {
			x := base + i
			cells[i] = int(baseHeightAmp * l.g.perlin.Value(float64(x)*baseHeightScale))
		}
	})
}

func (l *baseHeightLayer) get(x int) int { return l.cache.Get(x) }

// spanMinMax returns the h0 range over span. The span must be generated.
func (l *baseHeightLayer) spanMinMax(span coord.RegionSpanX) (int, int) {
	bs := span.ToBlockSpan()
	lo, hi := math.MaxInt, math.MinInt
	for x := bs.Min; x < bs.Max; x++ {
		h := l.get(x)
		if h < lo {
			lo = h
		}
		if h > hi {
			hi = h
		}
	}
	return lo, hi
}

type biomeRawLayer struct {
	onDemand
	g *Generator
}

func (l *biomeRawLayer) get(b coord.BlockVec) biome.RawInfo { return l.g.raw.At(b) }

type rawCell struct {
	Info    biome.RawInfo
	Weights biome.Weights
}

type rawChunk [chunk.Cells]rawCell

type rawWeightsLayer struct {
	chunkLayer[*rawChunk]
	g *Generator
}

func newRawWeightsLayer(g *Generator) *rawWeightsLayer {
	l := &rawWeightsLayer{chunkLayer: newChunkLayer[*rawChunk](), g: g}
	l.chunkLayer.generate = l.generateChunk
	return l
}

func (l *rawWeightsLayer) request(area coord.ChunkArea) {
	if !l.record(area, l.g.seq) {
		return
	}
	l.g.dep(LayerRawBiomeWeights, LayerWorldBaseHeight)
	l.g.baseHeight.request(area.ToRegionSpan())
	l.g.dep(LayerRawBiomeWeights, LayerBiomeRaw)
}

func (l *rawWeightsLayer) generateChunk(c coord.ChunkVec, seq store.SeqNum) {
	l.cache.Populate(c, seq, func(p **rawChunk) {
		rc := new(rawChunk)
		eachBlock(c, func(i int, b coord.BlockVec) {
			info, ws, dropped := biome.RawWeights(l.g.biomeRaw.get, b, l.g.baseHeight.get(b.X))
			rc[i] = rawCell{Info: info, Weights: ws}
			l.g.dropped += uint64(dropped)
		})
		*p = rc
	})
}

func (l *rawWeightsLayer) get(b coord.BlockVec) rawCell {
	return (*l.cache.Get(coord.BlockToChunk(b)))[cellIndex(b)]
}

func (l *rawWeightsLayer) cacheSizeBytes() int {
	return l.cache.CacheSizeBytes() + l.cache.PopulatedCells()*sizeOfRawChunk
}

type blendChunk [chunk.Cells]biome.Blend

type blendedWeightsLayer struct {
	chunkLayer[*blendChunk]
	g *Generator
}

func newBlendedWeightsLayer(g *Generator) *blendedWeightsLayer {
	l := &blendedWeightsLayer{chunkLayer: newChunkLayer[*blendChunk](), g: g}
	l.chunkLayer.generate = l.generateChunk
	return l
}

func (l *blendedWeightsLayer) request(area coord.ChunkArea) {
	if !l.record(area, l.g.seq) {
		return
	}
	l.g.dep(LayerBlendedBiomeWeights, LayerRawBiomeWeights)
	l.g.rawWeights.request(area)
}

func (l *blendedWeightsLayer) generateChunk(c coord.ChunkVec, seq store.SeqNum) {
	l.cache.Populate(c, seq, func(p **blendChunk) {
		bc := new(blendChunk)
		eachBlock(c, func(i int, b coord.BlockVec) {
			bc[i] = l.blend(l.g.rawWeights.get(b), b)
		})
		*p = bc
	})
}

// blend normalizes a raw cell and scales each weight by its biome's basis
// strength at b.
func (l *blendedWeightsLayer) blend(raw rawCell, b coord.BlockVec) biome.Blend {
	blend := biome.Blend{Info: raw.Info, Raw: raw.Weights}
	blend.Raw.Normalize()
	blend.Weights = blend.Raw
	for j := 0; j < blend.Weights.N; j++ {
		w := &blend.Weights.W[j]
		assert.InRange(w.Weight, 0, 1, "raw biome weight")
		w.Weight *= l.g.biomes.BasisStrength(w.ID, b)
	}
	return blend
}

func (l *blendedWeightsLayer) get(b coord.BlockVec) biome.Blend {
	return (*l.cache.Get(coord.BlockToChunk(b)))[cellIndex(b)]
}

func (l *blendedWeightsLayer) cacheSizeBytes() int {
	return l.cache.CacheSizeBytes() + l.cache.PopulatedCells()*sizeOfBlendChunk
}

type blendedHeightLayer struct {
	spanLayer[int]
	g *Generator
}

func newBlendedHeightLayer(g *Generator) *blendedHeightLayer {
	l := &blendedHeightLayer{spanLayer: newSpanLayer[int](), g: g}
	l.spanLayer.generate = l.generateColumn
	return l
}

// request needs the blends at (x, h0(x)) for every column, so it waits for
// the base height first to learn which rows of chunks that touches.
func (l *blendedHeightLayer) request(span coord.RegionSpanX) {
	if !l.record(span, l.g.seq) {
		return
	}
	l.g.dep(LayerBlendedBiomeHeight, LayerWorldBaseHeight)
	l.g.baseHeight.requestAwait(span)
	lo, hi := l.g.baseHeight.spanMinMax(span)

	bs := span.ToBlockSpan()
	area := coord.BlockArea{
		Min: coord.BlockVec{X: bs.Min, Y: lo},
		Max: coord.BlockVec{X: bs.Max, Y: hi + 1},
	}.ToChunkArea()
	l.g.dep(LayerBlendedBiomeHeight, LayerBlendedBiomeWeights)
	l.g.weights.request(area)
}

func (l *blendedHeightLayer) generateColumn(rx int, seq store.SeqNum) {
	base := rx * coord.BlocksPerRegion
	l.cache.Populate(rx, seq, func(cells []int) {
		for i := range cells {
			x := base + i
			h0 := l.g.baseHeight.get(x)
			blend := l.g.weights.get(coord.BlockVec{X: x, Y: h0})
			h := 0.0
			for _, w := range blend.Raw.Slice() {
				h += w.Weight * l.g.biomes.Height(w.ID, x, float64(h0), blend.Info)
			}
			cells[i] = int(math.Floor(h))
		}
	})
}

func (l *blendedHeightLayer) get(x int) int { return l.cache.Get(x) }

// Height lets structure placement read h2.
func (l *blendedHeightLayer) Height(x int) int { return l.get(x) }

type basisChunk [chunk.Cells]biome.BasisInfo

type basisLayer struct {
	chunkLayer[*basisChunk]
	g *Generator
}

func newBasisLayer(g *Generator) *basisLayer {
	l := &basisLayer{chunkLayer: newChunkLayer[*basisChunk](), g: g}
	l.chunkLayer.generate = l.generateChunk
	return l
}

func (l *basisLayer) request(area coord.ChunkArea) {
	if !l.record(area, l.g.seq) {
		return
	}
	l.g.dep(LayerBlendedBiomeBasis, LayerBlendedBiomeWeights)
	l.g.weights.request(area)
	l.g.dep(LayerBlendedBiomeBasis, LayerBlendedBiomeHeight)
	l.g.height.request(area.ToRegionSpan())
}

func (l *basisLayer) generateChunk(c coord.ChunkVec, seq store.SeqNum) {
	l.cache.Populate(c, seq, func(p **basisChunk) {
		bc := new(basisChunk)
		eachBlock(c, func(i int, b coord.BlockVec) {
			blend := l.g.weights.get(b)
			h2 := l.g.height.get(b.X)
			basis := 0.0
			for _, w := range blend.Weights.Slice() {
				basis += w.Weight * l.g.biomes.Basis(w.ID, b, h2)
			}
			top := blend.Weights.Max()
			bc[i] = biome.BasisInfo{ID: top.ID, Weight: top.Weight, Basis: basis, H2: h2}
		})
		*p = bc
	})
}

func (l *basisLayer) get(b coord.BlockVec) biome.BasisInfo {
	return (*l.cache.Get(coord.BlockToChunk(b)))[cellIndex(b)]
}

func (l *basisLayer) cacheSizeBytes() int {
	return l.cache.CacheSizeBytes() + l.cache.PopulatedCells()*sizeOfBasisChunk
}

type blockLayer struct {
	chunkLayer[*chunk.MapChunk]
	g *Generator
}

func newBlockLayer(g *Generator) *blockLayer {
	l := &blockLayer{chunkLayer: newChunkLayer[*chunk.MapChunk](), g: g}
	l.chunkLayer.generate = l.generateChunk
	return l
}

func (l *blockLayer) request(area coord.ChunkArea) {
	if !l.record(area, l.g.seq) {
		return
	}
	l.g.dep(LayerBlendedBiomeBlock, LayerBlendedBiomeBasis)
	l.g.basis.request(area)
}

func (l *blockLayer) generateChunk(c coord.ChunkVec, seq store.SeqNum) {
	l.cache.Populate(c, seq, func(p **chunk.MapChunk) {
		mc := new(chunk.MapChunk)
		eachBlock(c, func(i int, b coord.BlockVec) {
			info := l.g.basis.get(b)
			if info.Basis <= 0 {
				mc.Blocks[i] = chunk.Air
				return
			}
			mc.Blocks[i] = l.g.biomes.Block(info.ID, b, info)
		})
		*p = mc
	})
}

func (l *blockLayer) chunk(c coord.ChunkVec) *chunk.MapChunk { return *l.cache.Get(c) }

func (l *blockLayer) get(b coord.BlockVec) chunk.BlockID {
	return l.chunk(coord.BlockToChunk(b)).Blocks[cellIndex(b)]
}

func (l *blockLayer) cacheSizeBytes() int {
	return l.cache.CacheSizeBytes() + l.cache.PopulatedCells()*sizeOfMapChunk
}

// structureCorners are the cells whose dominant biome may place structures
// in a chunk.
var structureCorners = [...]coord.BlockVec{
	{X: 0, Y: 0},
	{X: 0, Y: coord.ChunkSize - 1},
	{X: coord.ChunkSize - 1, Y: 0},
	{X: coord.ChunkSize - 1, Y: coord.ChunkSize - 1},
}

type structureInfoLayer struct {
	chunkLayer[[]biome.StructureInfo]
	g *Generator
}

func newStructureInfoLayer(g *Generator) *structureInfoLayer {
	l := &structureInfoLayer{chunkLayer: newChunkLayer[[]biome.StructureInfo](), g: g}
	l.chunkLayer.generate = l.generateChunk
	return l
}

func (l *structureInfoLayer) request(area coord.ChunkArea) {
	if !l.record(area, l.g.seq) {
		return
	}
	l.g.dep(LayerBlendedBiomeStructureInfo, LayerBlendedBiomeWeights)
	l.g.weights.request(area)
	l.g.dep(LayerBlendedBiomeStructureInfo, LayerBlendedBiomeHeight)
	l.g.height.request(area.ToRegionSpan())
}

func (l *structureInfoLayer) generateChunk(c coord.ChunkVec, seq store.SeqNum) {
	l.cache.Populate(c, seq, func(p *[]biome.StructureInfo) {
		min := coord.ChunkToBlock(c)
		var ids []biome.ID
		for _, off := range structureCorners {
			blend := l.g.weights.get(min.Add(off))
			id := blend.Weights.Max().ID
			if !containsID(ids, id) {
				ids = append(ids, id)
			}
		}
		var out []biome.StructureInfo
		for _, id := range ids {
			out = l.g.biomes.StructureInfo(id, l.g.height, c, out)
		}
		for _, info := range out {
			assert.That(coord.BlockToChunk(info.Min) == c,
				"%s structure %d at %v placed outside its chunk %v", info.Biome, info.ID, info.Min, c)
			size := info.Max.Sub(info.Min)
			assert.That(size.X > 0 && size.Y > 0 && size.X <= coord.ChunkSize && size.Y <= coord.ChunkSize,
				"%s structure %d has size %v", info.Biome, info.ID, size)
		}
		*p = out
	})
}

func containsID(ids []biome.ID, id biome.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (l *structureInfoLayer) get(c coord.ChunkVec) []biome.StructureInfo { return *l.cache.Get(c) }

func (l *structureInfoLayer) cacheSizeBytes() int { return l.cache.CacheSizeBytes() }
