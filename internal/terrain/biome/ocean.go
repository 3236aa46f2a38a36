package biome

import (
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
)

var oceanHooks = Hooks{
	Height:        func(_ *Shared, _ int, h0 float64, _ RawInfo) float64 { return h0 },
	BasisStrength: func(*Shared, coord.BlockVec) float64 { return 1 },
	Basis: func(_ *Shared, b coord.BlockVec, h2 int) float64 {
		return heightGrad(h2, b.Y, 16)
	},
	Block: func(s *Shared, b coord.BlockVec, info BasisInfo) chunk.BlockID {
		x, y := float64(b.X), float64(b.Y)
		thresh := 0.45
		thresh += 0.04 * s.Noise.S1.Value(x*0.025, y*0.025)
		thresh += 0.02 * s.Noise.S1.Value(x*0.05, y*0.05)
		thresh += 0.01 + 0.01*s.Noise.S2.Value(x*0.1, y*0.1)
		if info.Weight > thresh {
			return chunk.Grass
		}
		return chunk.Gold
	},
}
