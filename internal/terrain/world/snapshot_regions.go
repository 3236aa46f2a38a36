package world

import (
	"fmt"

	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
)

// ExportRegion converts the loaded chunks of a region into a snapshot body.
func ExportRegion(r *Region) []snapshot.ChunkV1 {
	var out []snapshot.ChunkV1
	for i := range r.Chunks {
		if !r.Loaded[i] {
			continue
		}
		c := snapshot.ChunkV1{
			IX:  i % coord.RegionSize,
			IY:  i / coord.RegionSize,
			RLE: r.Chunks[i].ToRLE(),
		}
		for _, e := range r.Entities[i] {
			c.Entities = append(c.Entities, snapshot.EntityV1{
				Type:    uint8(e.Type),
				X:       e.X,
				Y:       e.Y,
				Variant: e.Variant,
				W:       e.W,
				H:       e.H,
			})
		}
		out = append(out, c)
	}
	return out
}

// ImportRegion replaces a region with the snapshot's chunks.
func (t *Terrain) ImportRegion(reg snapshot.RegionV1) error {
	u := coord.UniversalRegionCoord{
		Realm: coord.RealmID(reg.Header.Realm),
		Pos:   coord.RegionVec{X: reg.Header.RX, Y: reg.Header.RY},
	}
	r := &Region{Coord: u}
	for _, c := range reg.Chunks {
		if c.IX < 0 || c.IX >= coord.RegionSize || c.IY < 0 || c.IY >= coord.RegionSize {
			return fmt.Errorf("snapshot chunk index out of range: %d,%d", c.IX, c.IY)
		}
		i := c.IX + c.IY*coord.RegionSize
		if _, err := r.Chunks[i].FromRLE(c.RLE); err != nil {
			return fmt.Errorf("snapshot chunk %d,%d: %w", c.IX, c.IY, err)
		}
		r.Loaded[i] = true
		for _, e := range c.Entities {
			r.Entities[i] = append(r.Entities[i], chunk.BlockEntity{
				Type:    chunk.BlockEntityType(e.Type),
				X:       e.X,
				Y:       e.Y,
				Variant: e.Variant,
				W:       e.W,
				H:       e.H,
			})
		}
	}
	t.Regions[u] = r
	return nil
}
