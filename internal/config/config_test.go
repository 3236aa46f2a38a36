package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_TerrainYAML(t *testing.T) {
	cfg, err := Load("../../configs/terrain.yaml")
	if err != nil {
		t.Fatalf("load terrain.yaml: %v", err)
	}
	if cfg.Seed != 1234 {
		t.Fatalf("seed: got %d want 1234", cfg.Seed)
	}
	if len(cfg.Realms) != 2 {
		t.Fatalf("realms: got %d want 2", len(cfg.Realms))
	}
	under, ok := cfg.RealmByName("underworld")
	if !ok || under.ID != 1 {
		t.Fatalf("underworld realm: %+v ok=%v", under, ok)
	}
	if got := cfg.RealmSeed(under); got != 1234+7919 {
		t.Fatalf("realm seed: got %d", got)
	}
	if want := filepath.Join("data", "index", "terrain.sqlite"); cfg.Index.SQLitePath != want {
		t.Fatalf("sqlite path: got %q want %q", cfg.Index.SQLitePath, want)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if len(cfg.Realms) != 1 || cfg.Realms[0].Name != "overworld" {
		t.Fatalf("default realms: %+v", cfg.Realms)
	}
	if cfg.Cache.RetentionBatches != 8 || cfg.Server.MaxAreaChunks != 64 || cfg.Server.Addr != ":8080" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	if err := os.WriteFile(path, []byte("seed: 9\nindex:\n  sqlite_path: \"\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Seed != 9 || cfg.Cache.RetentionBatches != 8 {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.Index.SQLitePath != "" {
		t.Fatalf("explicitly empty index path should disable the index, got %q", cfg.Index.SQLitePath)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]Config{
		"realms must not be empty": {Server: ServerSpec{MaxAreaChunks: 1}},
		"duplicate realm id": {
			Realms: []RealmSpec{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}},
			Server: ServerSpec{MaxAreaChunks: 1},
		},
		"duplicate realm name": {
			Realms: []RealmSpec{{ID: 1, Name: "a"}, {ID: 2, Name: "a"}},
			Server: ServerSpec{MaxAreaChunks: 1},
		},
		"retention_batches": {
			Realms: []RealmSpec{{ID: 1, Name: "a"}},
			Cache:  CacheSpec{RetentionBatches: -1},
			Server: ServerSpec{MaxAreaChunks: 1},
		},
		"max_area_chunks": {
			Realms: []RealmSpec{{ID: 1, Name: "a"}},
		},
	}
	for want, cfg := range cases {
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("%s: got %v", want, err)
		}
	}
}

func TestLoad_BadYAMLIsPrefixed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.yaml")
	if err := os.WriteFile(path, []byte("realms: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.HasPrefix(err.Error(), "terrain.yaml: ") {
		t.Fatalf("got %v", err)
	}
}

func TestNormalize_NamesUnnamedRealms(t *testing.T) {
	cfg := Config{Realms: []RealmSpec{{ID: 3}}}
	cfg.Normalize()
	if cfg.Realms[0].Name != "realm-3" {
		t.Fatalf("name: got %q", cfg.Realms[0].Name)
	}
}

func TestSetDataDir_MovesDefaultIndex(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.SetDataDir("/srv/terrain")
	if want := filepath.Join("/srv/terrain", "index", "terrain.sqlite"); cfg.Index.SQLitePath != want {
		t.Fatalf("sqlite path: got %q want %q", cfg.Index.SQLitePath, want)
	}

	cfg.Index.SQLitePath = "/var/db/custom.sqlite"
	cfg.SetDataDir("/tmp/other")
	if cfg.Index.SQLitePath != "/var/db/custom.sqlite" || cfg.DataDir != "/tmp/other" {
		t.Fatalf("custom index path moved: %+v", cfg)
	}
}
