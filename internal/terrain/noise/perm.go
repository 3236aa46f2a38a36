package noise

import "terragen.ai/internal/terrain/mathx"

const permSize = 256

// RangePermutation is a seeded shuffle of [0, 256) used as a cheap lattice hash.
type RangePermutation struct {
	perm [permSize]uint8
}

func NewRangePermutation(seed int64) *RangePermutation {
	var source [permSize]int
	for i := range source {
		source[i] = i
	}
	seed = mathx.LCG(seed)
	seed = mathx.LCG(seed)
	seed = mathx.LCG(seed)

	p := &RangePermutation{}
	for i := permSize - 1; i >= 0; i-- {
		seed = mathx.LCG(seed)
		r := (seed&0x7FFFFFFF + 31) % int64(i+1)
		p.perm[i] = uint8(source[r])
		source[r] = source[i]
	}
	return p
}

func (p *RangePermutation) Value(x int32) int32 {
	return int32(p.perm[x&(permSize-1)])
}

func (p *RangePermutation) Value2(x, y int32) int32 {
	return p.Value(p.Value(x) + y)
}
