// Package config loads terrain.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"terragen.ai/internal/terrain/coord"
)

type Config struct {
	Seed    int64       `yaml:"seed"`
	Realms  []RealmSpec `yaml:"realms"`
	Cache   CacheSpec   `yaml:"cache"`
	Debug   DebugSpec   `yaml:"debug"`
	DataDir string      `yaml:"data_dir"`
	Index   IndexSpec   `yaml:"index"`
	Server  ServerSpec  `yaml:"server"`
}

type RealmSpec struct {
	ID         coord.RealmID `yaml:"id"`
	Name       string        `yaml:"name"`
	SeedOffset int64         `yaml:"seed_offset"`
}

type CacheSpec struct {
	// RetentionBatches is how many batches a region may sit unused before its
	// cached layer data is dropped. 0 disables eviction.
	RetentionBatches int `yaml:"retention_batches"`
}

type DebugSpec struct {
	ChunkMarkers bool `yaml:"chunk_markers"`
}

type IndexSpec struct {
	// SQLitePath may be empty to disable the index. "default" resolves under
	// DataDir.
	SQLitePath string `yaml:"sqlite_path"`
}

type ServerSpec struct {
	Addr          string `yaml:"addr"`
	MaxAreaChunks int    `yaml:"max_area_chunks"`
}

const defaultSQLitePath = "default"

func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("terrain.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("terrain.yaml: %w", err)
	}
	return cfg, nil
}

func Defaults() Config {
	return Config{
		Seed: 1234,
		Realms: []RealmSpec{
			{ID: 0, Name: "overworld"},
		},
		Cache:   CacheSpec{RetentionBatches: 8},
		DataDir: "./data",
		Index:   IndexSpec{SQLitePath: defaultSQLitePath},
		Server:  ServerSpec{Addr: ":8080", MaxAreaChunks: 64},
	}
}

func (c *Config) defaultIndexPath() string {
	return filepath.Join(c.DataDir, "index", "terrain.sqlite")
}

// SetDataDir moves DataDir. An index path that was the default follows it.
func (c *Config) SetDataDir(dir string) {
	if c.Index.SQLitePath == c.defaultIndexPath() {
		c.Index.SQLitePath = defaultSQLitePath
	}
	c.DataDir = dir
	c.Normalize()
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
	if c.Index.SQLitePath == defaultSQLitePath {
		c.Index.SQLitePath = c.defaultIndexPath()
	}
	for i := range c.Realms {
		c.Realms[i].Name = strings.TrimSpace(c.Realms[i].Name)
		if c.Realms[i].Name == "" {
			c.Realms[i].Name = fmt.Sprintf("realm-%d", c.Realms[i].ID)
		}
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":8080"
	}
}

func (c Config) Validate() error {
	if len(c.Realms) == 0 {
		return fmt.Errorf("realms must not be empty")
	}
	ids := map[coord.RealmID]bool{}
	names := map[string]bool{}
	for _, r := range c.Realms {
		if ids[r.ID] {
			return fmt.Errorf("duplicate realm id: %d", r.ID)
		}
		ids[r.ID] = true
		if names[r.Name] {
			return fmt.Errorf("duplicate realm name: %s", r.Name)
		}
		names[r.Name] = true
	}
	if c.Cache.RetentionBatches < 0 {
		return fmt.Errorf("cache.retention_batches must be >= 0")
	}
	if c.Server.MaxAreaChunks <= 0 {
		return fmt.Errorf("server.max_area_chunks must be > 0")
	}
	return nil
}

// RealmSeed is the generator seed of one realm.
func (c Config) RealmSeed(r RealmSpec) int64 { return c.Seed + r.SeedOffset }

func (c Config) RealmByID(id coord.RealmID) (RealmSpec, bool) {
	for _, r := range c.Realms {
		if r.ID == id {
			return r, true
		}
	}
	return RealmSpec{}, false
}

func (c Config) RealmByName(name string) (RealmSpec, bool) {
	for _, r := range c.Realms {
		if r.Name == name {
			return r, true
		}
	}
	return RealmSpec{}, false
}
