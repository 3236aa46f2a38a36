package biome

import (
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/mathx"
)

var mountainHooks = Hooks{
	// A peak across the whole cell, sunk by a margin so the edges meet h0.
	// Neighbouring biomes blending with a mountain pick up part of the slope.
	Height: func(_ *Shared, _ int, h0 float64, info RawInfo) float64 {
		half := info.Size / 2
		off := half - mathx.AbsInt(info.BiomeRem.X-half)
		const margin = 30
		return h0 + float64(off) - margin
	},
	BasisStrength: func(*Shared, coord.BlockVec) float64 { return 1 },
	Basis: func(s *Shared, b coord.BlockVec, h2 int) float64 {
		x, y := float64(b.X), float64(b.Y)
		// Only the vertical warp moves the surface in a side view.
		wy := y +
			5*s.Noise.S3.Value(x*0.05, y*0.05) +
			3*s.Noise.S1.Value(x*0.1, y*0.1) +
			1.5*s.Noise.S2.Value(x*0.2, y*0.2)
		if wy > float64(h2) {
			return clamp1(maxF(-1, 1+(float64(h2)-wy)*(2.0/16.0)))
		}
		return 1
	},
	Block: func(s *Shared, b coord.BlockVec, info BasisInfo) chunk.BlockID {
		return oreAt(s.Seed, b.X, b.Y, info.H2-b.Y, chunk.MountainStone)
	},
}
