package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"terragen.ai/internal/persistence/snapshot"
)

func writeRegion(t *testing.T, dataDir string, realm uint8, rx int, seed int64) string {
	t.Helper()
	p := snapshot.RegionPath(dataDir, realm, rx, 0)
	reg := snapshot.RegionV1{Header: snapshot.Header{Version: snapshot.Version, Realm: realm, RX: rx, Seed: seed}}
	if err := snapshot.WriteRegion(p, reg); err != nil {
		t.Fatalf("WriteRegion: %v", err)
	}
	return p
}

func TestArchiveStaleRegions(t *testing.T) {
	dir := t.TempDir()
	keep := writeRegion(t, dir, 0, 0, 10)
	writeRegion(t, dir, 0, 1, 11)
	writeRegion(t, dir, 0, 2, 11)
	writeRegion(t, dir, 3, 0, 10)

	moved, err := ArchiveStaleRegions(dir, map[uint8]int64{0: 10})
	if err != nil {
		t.Fatalf("ArchiveStaleRegions: %v", err)
	}
	if len(moved) != 3 {
		t.Fatalf("moved: %v", moved)
	}
	left, err := snapshot.ListRegions(dir)
	if err != nil || len(left) != 1 || left[0] != keep {
		t.Fatalf("left: %v err %v", left, err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "archives", "realm-0_seed-11", "meta.json"))
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	var m StaleMeta
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if m.Regions != 2 || m.Seed != 11 || m.Reason != "seed_changed" {
		t.Fatalf("meta: %+v", m)
	}
	if _, err := snapshot.ReadHeader(filepath.Join(dir, "archives", "realm-3_seed-10", "r.0.0.region.zst")); err != nil {
		t.Fatalf("archived region unreadable: %v", err)
	}

	again, err := ArchiveStaleRegions(dir, map[uint8]int64{0: 10})
	if err != nil || len(again) != 0 {
		t.Fatalf("second pass: %v err %v", again, err)
	}
}
