package biome

import (
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/mathx"
	"terragen.ai/internal/terrain/noise"
)

// Raw assigns blocks to square biome cells of one of three sizes. Larger
// cells win when their frequency table selects them.
type Raw struct {
	freq *noise.RangePermutation
	perm *noise.RangePermutation
}

func NewRaw(seed int64) *Raw {
	return &Raw{
		freq: noise.NewRangePermutation(seed),
		perm: noise.NewRangePermutation(mathx.LCG(seed)),
	}
}

func divFloor(b coord.BlockVec, size int) (coord.BlockVec, coord.BlockVec) {
	qx, rx := mathx.DivFloor(b.X, size)
	qy, ry := mathx.DivFloor(b.Y, size)
	return coord.BlockVec{X: qx, Y: qy}, coord.BlockVec{X: rx, Y: ry}
}

func (r *Raw) pick(cell coord.BlockVec) ID {
	return ID(r.perm.Value2(int32(cell.X), int32(cell.Y)) % int32(Count))
}

// At samples an offset-adjusted block. SmallCell/SmallRem always use the
// small scale so blending never sees an inflection at larger cell edges.
func (r *Raw) At(b coord.BlockVec) RawInfo {
	smallCell, smallRem := divFloor(b, ScaleSmall.Size)
	info := RawInfo{SmallCell: smallCell, SmallRem: smallRem}

	for _, s := range [...]Scale{ScaleLarge, ScaleMedium} {
		cell, rem := divFloor(b, s.Size)
		if r.freq.Value2(int32(cell.X), int32(cell.Y)) < s.Freq {
			info.ID = r.pick(cell)
			info.Size = s.Size
			info.BiomeCell = cell
			info.BiomeRem = rem
			return info
		}
	}

	info.ID = r.pick(smallCell)
	info.Size = ScaleSmall.Size
	info.BiomeCell = smallCell
	info.BiomeRem = smallRem
	return info
}
