package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"terragen.ai/internal/config"
	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/gen"
	"terragen.ai/internal/terrain/realm"
)

type fakeIndex struct {
	mu      sync.Mutex
	batches int
	regions []realm.SavedRegion
}

func (f *fakeIndex) RecordBatch(gen.BatchStats) {
	f.mu.Lock()
	f.batches++
	f.mu.Unlock()
}

func (f *fakeIndex) RecordRegion(sr realm.SavedRegion) {
	f.mu.Lock()
	f.regions = append(f.regions, sr)
	f.mu.Unlock()
}

func (f *fakeIndex) Close() error { return nil }

func newTestService(t *testing.T, idx *fakeIndex) *realm.Service {
	t.Helper()
	cfg := config.Defaults()
	cfg.Normalize()
	svc, err := realm.NewService(cfg, idx)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	area := coord.ChunkArea{Min: coord.ChunkVec{X: -1, Y: 0}, Max: coord.ChunkVec{X: 1, Y: 1}}
	if _, err := svc.Generate(context.Background(), realm.Request{Realm: 0, Area: area}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return svc
}

func loopbackRequest(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.RemoteAddr = "127.0.0.1:5555"
	return r
}

func TestMetricsHandler(t *testing.T) {
	svc := newTestService(t, &fakeIndex{})
	rec := httptest.NewRecorder()
	metricsHandler(svc, nil, nil)(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`terragen_realm_seq{realm="overworld"} 1`,
		`terragen_loaded_regions{realm="overworld"} 2`,
		`terragen_layer_generate_total{realm="overworld",layer="BlendedBiomeBlock"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestStateHandler_LoopbackOnly(t *testing.T) {
	svc := newTestService(t, &fakeIndex{})

	rec := httptest.NewRecorder()
	stateHandler(svc)(rec, httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote state: got %d want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	stateHandler(svc)(rec, loopbackRequest(http.MethodGet, "/admin/v1/state"))
	if rec.Code != http.StatusOK {
		t.Fatalf("state: got %d", rec.Code)
	}
	var resp struct {
		MaxAreaChunks int `json:"max_area_chunks"`
		Realms        []struct {
			Name string `json:"name"`
			Seq  uint64 `json:"seq"`
		} `json:"realms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MaxAreaChunks != 64 || len(resp.Realms) != 1 || resp.Realms[0].Seq != 1 {
		t.Fatalf("state: %+v", resp)
	}
}

func TestSnapshotHandler_WritesAndIndexesRegions(t *testing.T) {
	idx := &fakeIndex{}
	svc := newTestService(t, idx)
	dir := t.TempDir()
	snaps := &snapshotter{svc: svc, recorders: []regionRecorder{idx}, dataDir: dir}

	rec := httptest.NewRecorder()
	snapshotHandler(snaps)(rec, loopbackRequest(http.MethodGet, "/admin/v1/snapshot"))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET snapshot: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	snapshotHandler(snaps)(rec, loopbackRequest(http.MethodPost, "/admin/v1/snapshot"))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST snapshot: got %d %s", rec.Code, rec.Body.String())
	}
	if len(idx.regions) != 2 || idx.batches != 1 {
		t.Fatalf("index: regions=%d batches=%d", len(idx.regions), idx.batches)
	}
	paths, err := snapshot.ListRegions(dir)
	if err != nil || len(paths) != 2 {
		t.Fatalf("ListRegions: %v %v", paths, err)
	}

	restored, err := realm.NewService(config.Defaults())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	n, err := importRegions(restored, dir)
	if err != nil || n != 2 {
		t.Fatalf("importRegions: n=%d err=%v", n, err)
	}
	if st := restored.Stats(); st[0].LoadedRegions != 2 {
		t.Fatalf("restored regions: %+v", st[0])
	}
}
