// Package biome defines the closed biome set, the per-block blend records
// and the pure per-biome hooks the generator dispatches to.
package biome

import (
	"fmt"

	"terragen.ai/internal/terrain/coord"
)

type ID uint8

const (
	Debug1 ID = iota
	Debug2
	Debug3
	Mountain
	Ocean
	Forest

	Count
)

var names = [Count]string{
	Debug1:   "debug1",
	Debug2:   "debug2",
	Debug3:   "debug3",
	Mountain: "mountain",
	Ocean:    "ocean",
	Forest:   "forest",
}

func (id ID) String() string {
	if id >= Count {
		return fmt.Sprintf("biome(%d)", uint8(id))
	}
	return names[id]
}

// Scale is one of the allowed biome cell sizes. Freq is out of 256.
type Scale struct {
	Size int
	Freq int32
}

// Each scale is 3x the previous so halving for the offset keeps every size
// centred on the surface.
var (
	ScaleSmall  = Scale{Size: 600, Freq: 0}
	ScaleMedium = Scale{Size: ScaleSmall.Size * 3, Freq: 20}
	ScaleLarge  = Scale{Size: ScaleMedium.Size * 3, Freq: 20}
)

const (
	BlendDist  = 200
	BlendDist2 = BlendDist / 2
)

// ScaleOffset centres the biome grid on the origin.
var ScaleOffset = coord.BlockVec{X: ScaleLarge.Size / 2, Y: ScaleLarge.Size / 2}

// RawInfo is the unblended biome cell a block falls in.
type RawInfo struct {
	ID        ID
	SmallCell coord.BlockVec
	SmallRem  coord.BlockVec
	BiomeCell coord.BlockVec
	BiomeRem  coord.BlockVec
	Size      int
}

// Blend is the per-block biome mix. Raw holds the normalized distance
// weights; Weights holds the same list scaled by each biome's basis strength.
type Blend struct {
	Info    RawInfo
	Raw     Weights
	Weights Weights
}

// BasisInfo is the blended density of one block. Basis > 0 is solid.
type BasisInfo struct {
	ID     ID
	Weight float64
	Basis  float64
	H2     int
}

// Structure ids are per biome; these are the ones the forest emits.
const (
	StructTree   uint8 = 0
	StructMarker uint8 = 1
)

// StructureInfo is a block-space box [Min, Max) owned by a biome.
type StructureInfo struct {
	Min, Max coord.BlockVec
	ID       uint8
	Biome    ID
}
