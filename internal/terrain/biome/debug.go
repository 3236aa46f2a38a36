package biome

import (
	"math"

	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
)

type debugParam struct {
	hAmp       float64
	hFeatScale float64
	bScale     float64
	bOff       float64
	abs        bool
	block      chunk.BlockID
}

var debugParams = [...]debugParam{
	{hAmp: 15, hFeatScale: 0.01, bScale: 0.03, bOff: 0.15, abs: true, block: chunk.Debug},
	{hAmp: 30, hFeatScale: 0.02, bScale: 0.06, bOff: 0.75, abs: true, block: chunk.Debug2},
	{hAmp: 60, hFeatScale: 0.04, bScale: 0.12, bOff: 0, block: chunk.Debug3},
}

func debugHooks(p debugParam) Hooks {
	return Hooks{
		Height: func(s *Shared, x int, h0 float64, _ RawInfo) float64 {
			return h0 + p.hAmp*s.Noise.S1.Value(float64(x)*p.hFeatScale, 0)
		},
		BasisStrength: func(s *Shared, b coord.BlockVec) float64 {
			return 0.5 + 0.5*s.Noise.S2.Value(float64(b.X)*0.01, float64(b.Y)*0.01)
		},
		Basis: func(s *Shared, b coord.BlockVec, h2 int) float64 {
			if b.Y > h2 {
				return heightGrad(h2, b.Y, 16)
			}
			v := s.Noise.S3.Value(float64(b.X)*p.bScale, float64(b.Y)*p.bScale)
			if p.abs {
				v = math.Abs(v)
			}
			return clamp1(v + p.bOff)
		},
		Block: func(s *Shared, b coord.BlockVec, info BasisInfo) chunk.BlockID {
			return oreAt(s.Seed, b.X, b.Y, info.H2-b.Y, p.block)
		},
	}
}
