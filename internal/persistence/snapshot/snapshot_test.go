package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestRegionRoundTrip(t *testing.T) {
	path := RegionPath(t.TempDir(), 2, -1, 3)
	reg := RegionV1{
		Header: Header{Realm: 2, RX: -1, RY: 3, Seed: 1234, Seq: 9},
		Chunks: []ChunkV1{
			{IX: 0, IY: 15, RLE: []byte{0x00, 0x00, 0x00, 0x01}},
			{IX: 4, IY: 2, RLE: []byte{0x03, 0x80, 0x00, 0x00, 0xff, 0x00}, Entities: []EntityV1{{Type: 1, X: 10, Y: 20, Variant: 2, W: 3, H: 9}}},
		},
	}
	if err := WriteRegion(path, reg); err != nil {
		t.Fatalf("WriteRegion: %v", err)
	}
	got, err := ReadRegion(path)
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	if got.Header.Version != Version || got.Header.Chunks != 2 {
		t.Fatalf("header: got %+v", got.Header)
	}
	if !reflect.DeepEqual(got.Chunks, reg.Chunks) {
		t.Fatalf("chunks mismatch: got %+v want %+v", got.Chunks, reg.Chunks)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.Realm != 2 || h.RX != -1 || h.RY != 3 || h.Seed != 1234 || h.Seq != 9 {
		t.Fatalf("header mismatch: %+v", h)
	}
}

func TestReadRegionMissing(t *testing.T) {
	if _, err := ReadRegion(filepath.Join(t.TempDir(), "nope.region.zst")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestListRegions(t *testing.T) {
	dir := t.TempDir()
	for _, r := range [][3]int{{1, 0, 0}, {0, -2, 1}, {0, 3, 0}} {
		path := RegionPath(dir, uint8(r[0]), r[1], r[2])
		if err := WriteRegion(path, RegionV1{Header: Header{Realm: uint8(r[0]), RX: r[1], RY: r[2]}}); err != nil {
			t.Fatalf("WriteRegion: %v", err)
		}
	}
	paths, err := ListRegions(dir)
	if err != nil {
		t.Fatalf("ListRegions: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths: got %d want 3", len(paths))
	}
	if filepath.Base(paths[0]) != "r.-2.1.region.zst" || filepath.Base(filepath.Dir(paths[2])) != "realm-1" {
		t.Fatalf("order: %v", paths)
	}
	none, err := ListRegions(filepath.Join(dir, "missing"))
	if err != nil || len(none) != 0 {
		t.Fatalf("missing dir: %v %v", none, err)
	}
}
