package noise

import (
	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"terragen.ai/internal/terrain/mathx"
)

// Simplex is a 2D open simplex source clamped to [-1, 1].
type Simplex struct {
	n opensimplex.Noise
}

func NewSimplex(seed int64) Simplex {
	return Simplex{n: opensimplex.New(seed)}
}

func (s Simplex) Value(x, y float64) float64 {
	return mathx.Clamp(s.n.Eval2(x, y), -1, 1)
}

// Simplex3 is the trio of chained-seed sources most biomes sample from.
type Simplex3 struct {
	S1, S2, S3 Simplex
}

func NewSimplex3(seed int64) Simplex3 {
	s1 := mathx.LCG(seed)
	s2 := mathx.LCG(s1)
	s3 := mathx.LCG(s2)
	return Simplex3{S1: NewSimplex(s1), S2: NewSimplex(s2), S3: NewSimplex(s3)}
}

// Perlin1D samples single-octave 1D perlin noise. It is exactly 0 on integer lattice points.
type Perlin1D struct {
	p *perlin.Perlin
}

func NewPerlin1D(seed int64) Perlin1D {
	return Perlin1D{p: perlin.NewPerlin(2, 2, 1, seed)}
}

func (p Perlin1D) Value(x float64) float64 {
	return mathx.Clamp(p.p.Noise1D(x), -1, 1)
}
