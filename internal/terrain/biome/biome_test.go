package biome

import (
	"testing"

	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
)

func TestRawCellSizesAndRemainders(t *testing.T) {
	raw := NewRaw(1234)
	sizes := map[int]bool{}
	for x := -20000; x < 20000; x += 97 {
		for y := -6000; y < 6000; y += 89 {
			b := coord.BlockVec{X: x, Y: y}
			info := raw.At(b)
			if info.ID >= Count {
				t.Fatalf("%v: id %d out of range", b, info.ID)
			}
			switch info.Size {
			case ScaleSmall.Size, ScaleMedium.Size, ScaleLarge.Size:
			default:
				t.Fatalf("%v: unexpected size %d", b, info.Size)
			}
			sizes[info.Size] = true
			if info.BiomeRem.X < 0 || info.BiomeRem.X >= info.Size || info.SmallRem.Y < 0 || info.SmallRem.Y >= ScaleSmall.Size {
				t.Fatalf("%v: remainder out of range %+v", b, info)
			}
			back := coord.BlockVec{X: info.BiomeCell.X*info.Size + info.BiomeRem.X, Y: info.BiomeCell.Y*info.Size + info.BiomeRem.Y}
			if back != b {
				t.Fatalf("%v: cell+rem reconstructs %v", b, back)
			}
			if raw.At(b) != info {
				t.Fatalf("%v: not deterministic", b)
			}
		}
	}
	if !sizes[ScaleSmall.Size] {
		t.Fatalf("small cells never chosen")
	}
}

func TestScalesAreCentred(t *testing.T) {
	if ScaleMedium.Size%(3*ScaleSmall.Size) != 0 || ScaleLarge.Size%(3*ScaleSmall.Size) != 0 {
		t.Fatalf("scales must be multiples of 3x the small size")
	}
	for _, s := range []Scale{ScaleSmall, ScaleMedium, ScaleLarge} {
		if ScaleOffset.X%s.Size != s.Size/2 {
			t.Fatalf("offset %d does not centre scale %d", ScaleOffset.X, s.Size)
		}
	}
	if BlendDist > ScaleSmall.Size/2 {
		t.Fatalf("blend distance larger than half the smallest cell")
	}
}

func TestHooksStayInRange(t *testing.T) {
	set := NewSet(1234, Options{})
	for id := ID(0); id < Count; id++ {
		for x := -300; x < 300; x += 7 {
			for y := -120; y < 120; y += 5 {
				b := coord.BlockVec{X: x, Y: y}
				// Both calls assert their ranges internally.
				s := set.BasisStrength(id, b)
				v := set.Basis(id, b, 0)
				if s < 0 || s > 1 || v < -1 || v > 1 {
					t.Fatalf("%v at %v: strength %v basis %v", id, b, s, v)
				}
				if bl := set.Block(id, b, BasisInfo{ID: id, Weight: 1, Basis: 1}); !bl.Valid() || bl == chunk.Air {
					t.Fatalf("%v at %v: solid block %v", id, b, bl)
				}
			}
		}
	}
}

func TestBrokenBasisIsCaught(t *testing.T) {
	broken := table[Ocean]
	broken.Basis = func(*Shared, coord.BlockVec, int) float64 { return 1.5 }
	restore := Override(Ocean, broken)
	defer restore()

	set := NewSet(1, Options{})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected out of range basis to panic")
		}
	}()
	set.Basis(Ocean, coord.BlockVec{}, 0)
}

func TestAboveSurfaceIsAir(t *testing.T) {
	set := NewSet(99, Options{})
	for id := ID(0); id < Count; id++ {
		if v := set.Basis(id, coord.BlockVec{X: 5, Y: 200}, 0); v > 0 {
			t.Fatalf("%v: basis %v far above the surface", id, v)
		}
	}
}

func TestMountainHeightPeaksAtCentre(t *testing.T) {
	set := NewSet(1, Options{})
	info := RawInfo{ID: Mountain, Size: ScaleSmall.Size}
	info.BiomeRem.X = ScaleSmall.Size / 2
	peak := set.Height(Mountain, 0, 0, info)
	info.BiomeRem.X = 0
	edge := set.Height(Mountain, 0, 0, info)
	if peak != 270 || edge != -30 {
		t.Fatalf("mountain heights: peak %v edge %v", peak, edge)
	}
}

type flatEnv int

func (e flatEnv) Height(int) int { return int(e) }

type recorder struct {
	blocks   map[coord.BlockVec]chunk.BlockID
	entities []chunk.BlockEntity
}

func (r *recorder) Block(b coord.BlockVec) chunk.BlockID { return r.blocks[b] }
func (r *recorder) SetBlock(b coord.BlockVec, id chunk.BlockID) {
	r.blocks[b] = id
}
func (r *recorder) AddEntity(e chunk.BlockEntity) { r.entities = append(r.entities, e) }

func TestForestStructures(t *testing.T) {
	set := NewSet(5, Options{ChunkMarkers: true})
	var infos []StructureInfo
	for cx := 0; cx < 24; cx++ {
		infos = set.StructureInfo(Forest, flatEnv(3), coord.ChunkVec{X: cx, Y: 0}, infos)
	}
	markers, trees := 0, 0
	for _, info := range infos {
		if info.Biome != Forest {
			t.Fatalf("biome not stamped: %+v", info)
		}
		switch info.ID {
		case StructMarker:
			markers++
		case StructTree:
			trees++
			if info.Min.X%treeStride != 0 || info.Min.Y != 3 || info.Max.Y-info.Min.Y != treeHeight {
				t.Fatalf("tree box: %+v", info)
			}
		}
	}
	if markers != 24 {
		t.Fatalf("markers: got %d want 24", markers)
	}
	if trees == 0 || trees == 32 {
		t.Fatalf("trees: got %d, want some but not all of 32 columns", trees)
	}

	// A chunk above the surface gets no trees.
	if got := set.StructureInfo(Forest, flatEnv(3), coord.ChunkVec{X: 0, Y: 1}, nil); len(got) != 1 {
		t.Fatalf("elevated chunk: got %d structures want only the marker", len(got))
	}

	if set.HasStructures(Ocean) {
		t.Fatalf("ocean has no structures")
	}
}

func TestForestTreeSkipsMountainBlocks(t *testing.T) {
	set := NewSet(5, Options{})
	rec := &recorder{blocks: map[coord.BlockVec]chunk.BlockID{}}
	info := StructureInfo{Min: coord.BlockVec{X: 12, Y: 0}, Max: coord.BlockVec{X: 15, Y: 12}, ID: StructTree, Biome: Forest}
	rock := coord.BlockVec{X: 13, Y: 9}
	rec.blocks[rock] = chunk.MountainStone
	set.Structure(info, rec)

	if rec.blocks[rock] != chunk.MountainStone {
		t.Fatalf("mountain block overwritten")
	}
	if rec.blocks[coord.BlockVec{X: 13, Y: 1}] != chunk.Wood {
		t.Fatalf("trunk missing")
	}
	if rec.blocks[coord.BlockVec{X: 12, Y: 10}] != chunk.Leaves {
		t.Fatalf("leaves missing")
	}
	if len(rec.entities) != 1 {
		t.Fatalf("entities: got %d want 1", len(rec.entities))
	}
	e := rec.entities[0]
	if e.Type != chunk.EntityTree || e.W != 3 || e.H != 9 || e.Variant > 2 || e.X != 12 {
		t.Fatalf("tree entity: %+v", e)
	}
}

func TestOreStreamsAreIndependent(t *testing.T) {
	const seed = 99
	differ := false
	for x := 0; x < 1024 && !differ; x += 2 {
		for y := 0; y < 1024; y += 2 {
			if inCluster(seed, 101, x, y, 32, 3, 550) != inCluster(seed, 102, x, y, 32, 3, 550) {
				differ = true
				break
			}
		}
	}
	if !differ {
		t.Fatalf("salts 101 and 102 produced identical clusters")
	}

	found := map[chunk.BlockID]int{}
	for x := -512; x < 512; x++ {
		for y := -1024; y < 0; y++ {
			found[oreAt(seed, x, y, 60, chunk.Stone)]++
		}
	}
	for _, ore := range []chunk.BlockID{chunk.CoalOre, chunk.IronOre, chunk.GoldOre} {
		if found[ore] == 0 {
			t.Fatalf("no %v in a 1024x1024 deep patch: %v", ore, found)
		}
	}
	if found[chunk.Stone] < found[chunk.CoalOre] {
		t.Fatalf("ores outnumber host rock: %v", found)
	}
}
