package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "terragen.ai/internal/persistence/log"
)

type batchSummary struct {
	Batches       int            `json:"batches"`
	NewChunks     int            `json:"new_chunks"`
	Structures    int            `json:"structures"`
	Evicted       int            `json:"evicted"`
	MeanMS        float64        `json:"mean_ms"`
	MaxMS         float64        `json:"max_ms"`
	LayerGenerate map[string]int `json:"layer_generate"`
}

func summarizeBatches(entries []persistlog.BatchEntry) batchSummary {
	s := batchSummary{LayerGenerate: map[string]int{}}
	total := 0.0
	for _, e := range entries {
		s.Batches++
		s.NewChunks += e.NewChunks
		s.Structures += e.Structures
		s.Evicted += e.Evicted
		total += e.DurationMS
		if e.DurationMS > s.MaxMS {
			s.MaxMS = e.DurationMS
		}
		for name, n := range e.Generated {
			s.LayerGenerate[name] += n
		}
	}
	if s.Batches > 0 {
		s.MeanMS = total / float64(s.Batches)
	}
	return s
}

// batchesCmd summarizes the compressed batch event log.
func batchesCmd(args []string) {
	fs := flag.NewFlagSet("batches", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	realmID := fs.Int("realm", -1, "realm id filter (-1 for all)")
	list := fs.Bool("list", false, "print every entry instead of a summary")
	_ = fs.Parse(args)

	entries, err := persistlog.ReadBatchLog(filepath.Join(*dataDir, "events"), *realmID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read batch log:", err)
		os.Exit(1)
	}
	if *list {
		for _, e := range entries {
			printJSON(e)
		}
		return
	}
	printJSON(summarizeBatches(entries))
}
