package biome

import (
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/mathx"
)

// MaxContributors caps the biomes blended into one block.
const MaxContributors = 4

type Weight struct {
	ID     ID
	Weight float64
}

// Weights is a small fixed-capacity list of unique biome weights.
type Weights struct {
	N int
	W [MaxContributors]Weight
}

func (ws *Weights) Slice() []Weight { return ws.W[:ws.N] }

// Add accumulates w into id's entry. When the list is full and id is new the
// smallest entry is replaced if w beats it; Add reports false when a weight
// was discarded.
func (ws *Weights) Add(id ID, w float64) bool {
	for i := 0; i < ws.N; i++ {
		if ws.W[i].ID == id {
			ws.W[i].Weight += w
			return true
		}
	}
	if ws.N < MaxContributors {
		ws.W[ws.N] = Weight{ID: id, Weight: w}
		ws.N++
		return true
	}
	min := 0
	for i := 1; i < ws.N; i++ {
		if ws.W[i].Weight < ws.W[min].Weight {
			min = i
		}
	}
	if w > ws.W[min].Weight {
		ws.W[min] = Weight{ID: id, Weight: w}
	}
	return false
}

func (ws *Weights) Sum() float64 {
	total := 0.0
	for _, w := range ws.Slice() {
		total += w.Weight
	}
	return total
}

// Max returns the heaviest entry, the first one on ties.
func (ws *Weights) Max() Weight {
	best := ws.W[0]
	for _, w := range ws.W[1:ws.N] {
		if w.Weight > best.Weight {
			best = w
		}
	}
	return best
}

func (ws *Weights) Normalize() {
	total := ws.Sum()
	if total <= 0 {
		return
	}
	for i := 0; i < ws.N; i++ {
		ws.W[i].Weight /= total
	}
}

// RawSampler returns the raw biome cell for an offset-adjusted block.
type RawSampler func(b coord.BlockVec) RawInfo

// RawWeights computes the un-normalized distance weights for block b whose
// world base height is h0. It returns the raw info of b itself and how many
// contributors were dropped by the cap.
func RawWeights(sample RawSampler, b coord.BlockVec, h0 int) (RawInfo, Weights, int) {
	b = b.Sub(ScaleOffset).Sub(coord.BlockVec{X: 0, Y: h0})
	info := sample(b)

	var ws Weights
	dropped := 0
	add := func(id ID, w float64) {
		if w <= 0 {
			return
		}
		if !ws.Add(id, w) {
			dropped++
		}
	}
	add(info.ID, 100)

	leftD := info.SmallRem.X
	rightD := ScaleSmall.Size - info.SmallRem.X
	bottomD := info.SmallRem.Y
	topD := ScaleSmall.Size - info.SmallRem.Y

	left := leftD < BlendDist
	right := rightD <= BlendDist
	bottom := bottomD < BlendDist
	top := topD <= BlendDist
	if !left && !right && !bottom && !top {
		return info, ws, dropped
	}

	minD := mathx.MinInt(mathx.MinInt(leftD, rightD), mathx.MinInt(bottomD, topD))
	add(info.ID, float64(minD)/2)

	leftW := float64(BlendDist-leftD) / 2
	rightW := float64(BlendDist-rightD) / 2
	bottomW := float64(BlendDist-bottomD) / 2
	topW := float64(BlendDist-topD) / 2

	at := func(dx, dy int) ID { return sample(coord.BlockVec{X: b.X + dx, Y: b.Y + dy}).ID }

	if left {
		add(at(-BlendDist, 0), leftW)
		if bottom {
			add(at(-BlendDist, -BlendDist), minF(leftW, bottomW))
		} else if top {
			add(at(-BlendDist, BlendDist), minF(leftW, topW))
		}
	} else if right {
		add(at(BlendDist, 0), rightW)
		if bottom {
			add(at(BlendDist, -BlendDist), minF(rightW, bottomW))
		} else if top {
			add(at(BlendDist, BlendDist), minF(rightW, topW))
		}
	}
	if bottom {
		add(at(0, -BlendDist), bottomW)
	} else if top {
		add(at(0, BlendDist), topW)
	}
	return info, ws, dropped
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
