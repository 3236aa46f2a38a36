package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/realm"
)

var blockGlyphs = map[chunk.BlockID]byte{
	chunk.Air:           ' ',
	chunk.Dirt:          '.',
	chunk.Grass:         '"',
	chunk.Stone:         '#',
	chunk.MountainStone: 'M',
	chunk.Sand:          ':',
	chunk.Gold:          '$',
	chunk.Wood:          '|',
	chunk.Leaves:        '*',
	chunk.CoalOre:       'c',
	chunk.IronOre:       'i',
	chunk.GoldOre:       'g',
	chunk.Debug:         '1',
	chunk.Debug2:        '2',
	chunk.Debug3:        '3',
}

func glyph(b chunk.BlockID) byte {
	if g, ok := blockGlyphs[b]; ok {
		return g
	}
	return '?'
}

// renderASCII writes area one character per block, highest row first.
func renderASCII(w io.Writer, area coord.BlockArea, at func(coord.BlockVec) chunk.BlockID) error {
	line := make([]byte, 0, area.Max.X-area.Min.X+1)
	for y := area.Max.Y - 1; y >= area.Min.Y; y-- {
		line = line[:0]
		for x := area.Min.X; x < area.Max.X; x++ {
			line = append(line, glyph(at(coord.BlockVec{X: x, Y: y})))
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func writeLegend(w io.Writer) {
	for id := chunk.BlockID(0); id.Valid(); id++ {
		fmt.Fprintf(w, "%q %s\n", glyph(id), id)
	}
}

// renderCmd generates a chunk area (or reuses stored regions) and prints it.
func renderCmd(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", "./configs/terrain.yaml", "terrain config path (empty for defaults)")
	dataDir := fs.String("data", "", "data directory to load region snapshots from (optional)")
	realmID := fs.Int("realm", 0, "realm id")
	minS := fs.String("min", "", "area min chunk: x,y (required)")
	maxS := fs.String("max", "", "area max chunk, exclusive: x,y (required)")
	legend := fs.Bool("legend", false, "print the glyph legend after the map")
	_ = fs.Parse(args)

	area, err := parseArea(*minS, *maxS)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad area:", err)
		os.Exit(2)
	}
	cfg := loadConfig(*configPath, "")
	if n := area.Count(); n > cfg.Server.MaxAreaChunks {
		cfg.Server.MaxAreaChunks = n
	}
	svc, err := realm.NewService(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		if _, err := importRegions(svc, *dataDir); err != nil {
			fmt.Fprintln(os.Stderr, "import snapshots:", err)
			os.Exit(1)
		}
	}
	rid := coord.RealmID(*realmID)
	if _, err := svc.Generate(context.Background(), realm.Request{Realm: rid, Area: area}); err != nil {
		fmt.Fprintln(os.Stderr, "generate:", err)
		os.Exit(1)
	}
	at := func(b coord.BlockVec) chunk.BlockID { return svc.Block(rid, b) }
	if err := renderASCII(os.Stdout, area.ToBlockArea(), at); err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
		os.Exit(1)
	}
	if *legend {
		writeLegend(os.Stdout)
	}
}
