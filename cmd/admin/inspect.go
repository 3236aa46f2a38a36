package main

import (
	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/terrain/chunk"
)

type regionSummary struct {
	Header snapshot.Header `json:"header"`
	Blocks map[string]int  `json:"blocks"`
	Trees  int             `json:"trees"`
	Chunks []chunkSummary  `json:"chunks"`
}

type chunkSummary struct {
	IX       int    `json:"ix"`
	IY       int    `json:"iy"`
	Digest   string `json:"digest"`
	Solid    int    `json:"solid"`
	Entities int    `json:"entities"`
}

// summarizeRegion decodes every chunk of reg and tallies its blocks.
func summarizeRegion(reg snapshot.RegionV1) (regionSummary, error) {
	sum := regionSummary{Header: reg.Header, Blocks: map[string]int{}}
	for _, c := range reg.Chunks {
		var mc chunk.MapChunk
		if _, err := mc.FromRLE(c.RLE); err != nil {
			return sum, err
		}
		solid := 0
		for _, b := range mc.Blocks {
			sum.Blocks[b.String()]++
			if b.Solid() {
				solid++
			}
		}
		for _, e := range c.Entities {
			if chunk.BlockEntityType(e.Type) == chunk.EntityTree {
				sum.Trees++
			}
		}
		sum.Chunks = append(sum.Chunks, chunkSummary{
			IX:       c.IX,
			IY:       c.IY,
			Digest:   mc.Digest()[:16],
			Solid:    solid,
			Entities: len(c.Entities),
		})
	}
	return sum, nil
}
