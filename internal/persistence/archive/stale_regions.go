// Package archive moves region snapshots that no longer match the running
// configuration out of the live regions tree.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"terragen.ai/internal/persistence/snapshot"
)

type StaleMeta struct {
	Realm      uint8  `json:"realm"`
	Seed       int64  `json:"seed"`
	Reason     string `json:"reason"`
	Regions    int    `json:"regions"`
	ArchivedAt string `json:"archived_at"`
}

// ArchiveStaleRegions moves every snapshot under dataDir whose realm is not
// in seeds, or whose seed differs, to
// dataDir/archives/realm-<id>_seed-<seed>/. It returns the new paths.
func ArchiveStaleRegions(dataDir string, seeds map[uint8]int64) ([]string, error) {
	paths, err := snapshot.ListRegions(dataDir)
	if err != nil {
		return nil, err
	}

	metas := map[string]*StaleMeta{}
	var moved []string
	for _, p := range paths {
		h, err := snapshot.ReadHeader(p)
		if err != nil {
			return moved, fmt.Errorf("%s: %w", p, err)
		}
		want, ok := seeds[h.Realm]
		reason := ""
		switch {
		case !ok:
			reason = "unknown_realm"
		case want != h.Seed:
			reason = "seed_changed"
		default:
			continue
		}

		dir := filepath.Join(dataDir, "archives", fmt.Sprintf("realm-%d_seed-%d", h.Realm, h.Seed))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return moved, err
		}
		dst := filepath.Join(dir, filepath.Base(p))
		if err := os.Rename(p, dst); err != nil {
			return moved, err
		}
		moved = append(moved, dst)

		m := metas[dir]
		if m == nil {
			m = &StaleMeta{Realm: h.Realm, Seed: h.Seed, Reason: reason}
			metas[dir] = m
		}
		m.Regions++
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for dir, m := range metas {
		m.ArchivedAt = now
		if b, err := json.MarshalIndent(m, "", "  "); err == nil {
			_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
		}
	}
	return moved, nil
}
