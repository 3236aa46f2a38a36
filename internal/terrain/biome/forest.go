package biome

import (
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/mathx"
)

const (
	treeWidth   = 3
	treeSpacing = 9
	treeStride  = treeSpacing + treeWidth
	treeHeight  = 12
	trunkHeight = 8

	// Share of stride columns that actually grow a tree.
	treePermille = 700
)

var forestHooks = Hooks{
	Height: func(s *Shared, x int, h0 float64, _ RawInfo) float64 {
		return h0 + 15*s.Noise.S1.Value(float64(x)*0.05, 0)
	},
	BasisStrength: func(s *Shared, b coord.BlockVec) float64 {
		return 0.5 + 0.5*s.Noise.S1.Value(float64(b.X)*0.03, float64(b.Y)*0.03)
	},
	Basis: func(s *Shared, b coord.BlockVec, h2 int) float64 {
		if b.Y > h2 {
			return outGrad(float64(h2), b.Y, 1.0/5.0)
		}
		v := inGrad(float64(h2), b.Y, 1.0/100.0) +
			s.Noise.S1.Value(float64(b.X)*0.06, float64(b.Y)*0.06)
		return clamp1(v)
	},
	Block: func(s *Shared, b coord.BlockVec, info BasisInfo) chunk.BlockID {
		depth := info.H2 - b.Y
		switch {
		case depth < 1:
			return chunk.Grass
		case depth < 6:
			return chunk.Dirt
		default:
			return oreAt(s.Seed, b.X, b.Y, depth, chunk.Stone)
		}
	},
	StructureInfo: forestStructureInfo,
	Structure:     forestStructure,
}

func forestStructureInfo(s *Shared, env Env, c coord.ChunkVec, emit func(StructureInfo)) {
	min := coord.ChunkToBlock(c)
	max := min.Add(coord.BlockVec{X: coord.ChunkSize, Y: coord.ChunkSize})
	if s.Markers {
		emit(StructureInfo{Min: min, Max: min.Add(coord.BlockVec{X: 1, Y: 1}), ID: StructMarker})
	}
	for x := min.X; x < max.X; x++ {
		if mathx.Mod(x, treeStride) != 0 {
			continue
		}
		h2 := env.Height(x)
		if h2 < min.Y || h2 >= max.Y {
			continue
		}
		if !hashChance(s.Seed, x, 0, treePermille) {
			continue
		}
		base := coord.BlockVec{X: x, Y: h2}
		emit(StructureInfo{Min: base, Max: base.Add(coord.BlockVec{X: treeWidth, Y: treeHeight}), ID: StructTree})
	}
}

func forestStructure(_ *Shared, info StructureInfo, ed Editor) {
	for x := info.Min.X; x < info.Max.X; x++ {
		for y := info.Min.Y; y < info.Max.Y; y++ {
			b := coord.BlockVec{X: x, Y: y}
			id, ok := forestStructureBlock(info, b)
			if !ok {
				continue
			}
			// Mountains are never carved by neighbouring structures.
			if ed.Block(b) == chunk.MountainStone {
				continue
			}
			ed.SetBlock(b, id)
		}
	}
	if info.ID == StructTree {
		ed.AddEntity(chunk.BlockEntity{
			Type:    chunk.EntityTree,
			X:       info.Min.X,
			Y:       info.Min.Y,
			Variant: uint8(uint64(mathx.LCG(int64(info.Min.X))) % 3),
			W:       treeWidth,
			H:       trunkHeight + 1,
		})
	}
}

func forestStructureBlock(info StructureInfo, b coord.BlockVec) (chunk.BlockID, bool) {
	if info.ID == StructMarker {
		return chunk.Grass, true
	}
	dy := b.Y - info.Min.Y
	switch {
	case dy >= trunkHeight:
		return chunk.Leaves, true
	case dy >= 1 && b.X == info.Min.X+treeWidth/2:
		return chunk.Wood, true
	default:
		return 0, false
	}
}
