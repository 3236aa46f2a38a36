package biome

import (
	"terragen.ai/internal/terrain/assert"
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/mathx"
	"terragen.ai/internal/terrain/noise"
)

// Shared is the per-biome state built once per generator seed.
type Shared struct {
	ID      ID
	Seed    int64
	Noise   noise.Simplex3
	Markers bool
}

// Env is what structure placement may read from the generator.
type Env interface {
	// Height returns the cached blended surface height h2 of column x.
	Height(x int) int
}

// Editor writes structures into already generated chunks of one realm.
type Editor interface {
	Block(b coord.BlockVec) chunk.BlockID
	SetBlock(b coord.BlockVec, id chunk.BlockID)
	AddEntity(e chunk.BlockEntity)
}

// Hooks is one biome's behaviour. StructureInfo and Structure are optional.
type Hooks struct {
	Height        func(s *Shared, x int, h0 float64, info RawInfo) float64
	BasisStrength func(s *Shared, b coord.BlockVec) float64
	Basis         func(s *Shared, b coord.BlockVec, h2 int) float64
	Block         func(s *Shared, b coord.BlockVec, info BasisInfo) chunk.BlockID
	StructureInfo func(s *Shared, env Env, c coord.ChunkVec, emit func(StructureInfo))
	Structure     func(s *Shared, info StructureInfo, ed Editor)
}

var table = [Count]Hooks{
	Debug1:   debugHooks(debugParams[0]),
	Debug2:   debugHooks(debugParams[1]),
	Debug3:   debugHooks(debugParams[2]),
	Mountain: mountainHooks,
	Ocean:    oceanHooks,
	Forest:   forestHooks,
}

// biomeSeeds are xor'd with the world seed so each biome gets its own noise.
var biomeSeeds = [Count]uint64{
	Debug1:   0xF7F7_F7F7_F7F7_1111,
	Debug2:   0xF7F7_F7F7_F7F7_2222,
	Debug3:   0xF7F7_F7F7_F7F7_3333,
	Mountain: 0xF7F7_F7F7_F7F7_4444,
	Ocean:    0xF7F7_F7F7_F7F7_5555,
	Forest:   0xF7F7_F7F7_F7F7_6666,
}

// Override swaps the hooks of one biome and returns a restore func. It
// exists for tests that need a stub biome.
func Override(id ID, h Hooks) (restore func()) {
	prev := table[id]
	table[id] = h
	return func() { table[id] = prev }
}

type Options struct {
	ChunkMarkers bool
}

// Set dispatches hook calls by biome id for one world seed.
type Set struct {
	shared [Count]Shared
}

func NewSet(seed int64, opts Options) *Set {
	s := &Set{}
	for id := ID(0); id < Count; id++ {
		bs := int64(uint64(seed) ^ biomeSeeds[id])
		s.shared[id] = Shared{
			ID:      id,
			Seed:    bs,
			Noise:   noise.NewSimplex3(bs),
			Markers: opts.ChunkMarkers,
		}
	}
	return s
}

func (s *Set) Height(id ID, x int, h0 float64, info RawInfo) float64 {
	return table[id].Height(&s.shared[id], x, h0, info)
}

func (s *Set) BasisStrength(id ID, b coord.BlockVec) float64 {
	v := table[id].BasisStrength(&s.shared[id], b)
	assert.InRange(v, 0, 1, id.String()+" basis strength")
	return v
}

func (s *Set) Basis(id ID, b coord.BlockVec, h2 int) float64 {
	v := table[id].Basis(&s.shared[id], b, h2)
	assert.InRange(v, -1, 1, id.String()+" basis")
	return v
}

func (s *Set) Block(id ID, b coord.BlockVec, info BasisInfo) chunk.BlockID {
	return table[id].Block(&s.shared[id], b, info)
}

func (s *Set) HasStructures(id ID) bool { return table[id].StructureInfo != nil }

// StructureInfo appends the structures biome id places in chunk c.
func (s *Set) StructureInfo(id ID, env Env, c coord.ChunkVec, out []StructureInfo) []StructureInfo {
	fn := table[id].StructureInfo
	if fn == nil {
		return out
	}
	fn(&s.shared[id], env, c, func(info StructureInfo) {
		info.Biome = id
		out = append(out, info)
	})
	return out
}

func (s *Set) Structure(info StructureInfo, ed Editor) {
	fn := table[info.Biome].Structure
	if fn == nil {
		return
	}
	fn(&s.shared[info.Biome], info, ed)
}

// hashChance is a stable per-coordinate roll against permille.
func hashChance(seed int64, x, y int, permille uint64) bool {
	return mathx.Hash2(seed, x, y)%1000 < permille
}
