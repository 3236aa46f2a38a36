// Package realm routes generation requests to one generator per realm and
// owns the world state they write into.
package realm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"terragen.ai/internal/config"
	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/gen"
	"terragen.ai/internal/terrain/world"
)

var (
	ErrUnknownRealm  = errors.New("unknown realm")
	ErrAreaTooLarge  = errors.New("area too large")
	ErrEmptyArea     = errors.New("empty area")
	ErrServiceClosed = errors.New("realm service closed")
	ErrSeedMismatch  = errors.New("region seed mismatch")
	ErrOutOfBounds   = errors.New("area outside world bounds")
)

type Runtime struct {
	Spec config.RealmSpec
	Seed int64
	Gen  *gen.Generator
}

// BatchSink receives the stats of every batch the service runs.
type BatchSink interface {
	RecordBatch(st gen.BatchStats)
}

type Request struct {
	Realm coord.RealmID
	Area  coord.ChunkArea
}

// Chunk is a copy of one generated chunk, safe to use without the lock.
type Chunk struct {
	Pos      coord.ChunkVec
	Blocks   chunk.MapChunk
	Entities []chunk.BlockEntity
}

type Result struct {
	Stats  gen.BatchStats
	Chunks []Chunk
}

// Service serializes every top-level request; generators are not safe for
// concurrent use.
type Service struct {
	mu sync.Mutex

	cfg      config.Config
	runtimes map[coord.RealmID]*Runtime
	terrain  *world.Terrain
	sinks    []BatchSink
	dirty    map[coord.UniversalRegionCoord]bool
	maxArea  int
	closed   bool
}

func NewService(cfg config.Config, sinks ...BatchSink) (*Service, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		runtimes: map[coord.RealmID]*Runtime{},
		terrain:  world.NewTerrain(),
		dirty:    map[coord.UniversalRegionCoord]bool{},
		maxArea:  cfg.Server.MaxAreaChunks,
	}
	for _, sink := range sinks {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
	for _, spec := range cfg.Realms {
		seed := cfg.RealmSeed(spec)
		s.runtimes[spec.ID] = &Runtime{
			Spec: spec,
			Seed: seed,
			Gen: gen.New(gen.Config{
				Seed:         seed,
				Realm:        spec.ID,
				Retention:    uint64(cfg.Cache.RetentionBatches),
				ChunkMarkers: cfg.Debug.ChunkMarkers,
			}),
		}
	}
	return s, nil
}

// AddSink registers another batch sink after construction.
func (s *Service) AddSink(sink BatchSink) {
	if sink == nil {
		return
	}
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
}

// Realms lists the configured realms ordered by id.
func (s *Service) Realms() []config.RealmSpec {
	out := make([]config.RealmSpec, 0, len(s.runtimes))
	for _, rt := range s.runtimes {
		out = append(out, rt.Spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) MaxAreaChunks() int { return s.maxArea }

// Validate checks a request without generating anything.
func (s *Service) Validate(req Request) error {
	if _, ok := s.runtimes[req.Realm]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRealm, req.Realm)
	}
	if req.Area.Empty() {
		return ErrEmptyArea
	}
	if !req.Area.InBounds() {
		return fmt.Errorf("%w: %v..%v exceeds +-%d chunks", ErrOutOfBounds, req.Area.Min, req.Area.Max, coord.MaxChunkCoord)
	}
	// Per-axis checks first so the product cannot overflow.
	size := req.Area.Size()
	if size.X > s.maxArea || size.Y > s.maxArea/size.X {
		return fmt.Errorf("%w: %dx%d chunks > %d", ErrAreaTooLarge, size.X, size.Y, s.maxArea)
	}
	return nil
}

// Generate runs one batch for req and returns copies of every chunk in the
// area, in x-major order.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	if err := s.Validate(req); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{}, ErrServiceClosed
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rt := s.runtimes[req.Realm]
	st := rt.Gen.Generate(s.terrain, req.Area)
	for _, c := range st.NewChunks {
		u := coord.UniversalChunkCoord{Realm: req.Realm, Pos: c}
		s.dirty[u.Region()] = true
	}
	// Structure writes only land in fresh chunks, so NewChunks covers every
	// region this batch changed.
	res := Result{Stats: st}
	req.Area.Each(func(c coord.ChunkVec) {
		u := coord.UniversalChunkCoord{Realm: req.Realm, Pos: c}
		ents := s.terrain.Entities(u)
		res.Chunks = append(res.Chunks, Chunk{
			Pos:      c,
			Blocks:   *s.terrain.Chunk(u),
			Entities: append([]chunk.BlockEntity(nil), ents...),
		})
	})
	res.Stats.Digest = areaDigest(res.Chunks)
	for _, sink := range s.sinks {
		sink.RecordBatch(res.Stats)
	}
	return res, nil
}

// areaDigest hashes chunk contents in result order, so equal digests mean
// two runs returned the same terrain for the same area.
func areaDigest(chunks []Chunk) string {
	h := sha256.New()
	var buf [8]byte
	for i := range chunks {
		c := &chunks[i]
		binary.LittleEndian.PutUint32(buf[0:], uint32(int32(c.Pos.X)))
		binary.LittleEndian.PutUint32(buf[4:], uint32(int32(c.Pos.Y)))
		h.Write(buf[:])
		h.Write(c.Blocks.AppendRLE(nil))
		for _, e := range c.Entities {
			fmt.Fprintf(h, "e%d,%d,%d,%d,%d,%d;", e.Type, e.X, e.Y, e.Variant, e.W, e.H)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Block reads one block of the world; unloaded chunks read as air.
func (s *Service) Block(realm coord.RealmID, b coord.BlockVec) chunk.BlockID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terrain.Block(realm, b)
}

// RealmStats is a diagnostic view of one realm's generator.
type RealmStats struct {
	Spec           config.RealmSpec
	Seed           int64
	Seq            uint64
	CacheSizeBytes int
	LoadedRegions  int
	Generated      map[string]uint64
}

func (s *Service) Stats() []RealmStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded := map[coord.RealmID]int{}
	for _, k := range s.terrain.RegionKeys() {
		loaded[k.Realm]++
	}
	var out []RealmStats
	for _, spec := range s.Realms() {
		rt := s.runtimes[spec.ID]
		st := RealmStats{
			Spec:           spec,
			Seed:           rt.Seed,
			Seq:            rt.Gen.Seq(),
			CacheSizeBytes: rt.Gen.CacheSizeBytes(),
			LoadedRegions:  loaded[spec.ID],
			Generated:      map[string]uint64{},
		}
		for _, id := range gen.Layers() {
			st.Generated[id.String()] = rt.Gen.GenerateCount(id)
		}
		out = append(out, st)
	}
	return out
}

// ImportRegion loads a persisted region so its chunks are served as is. A
// region generated under another seed would leave seams and is rejected.
func (s *Service) ImportRegion(reg snapshot.RegionV1) error {
	rt, ok := s.runtimes[coord.RealmID(reg.Header.Realm)]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRealm, reg.Header.Realm)
	}
	if reg.Header.Seed != rt.Seed {
		return fmt.Errorf("%w: region %d,%d has seed %d, realm %d uses %d",
			ErrSeedMismatch, reg.Header.RX, reg.Header.RY, reg.Header.Seed, reg.Header.Realm, rt.Seed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terrain.ImportRegion(reg)
}

// Seeds maps every realm id to the seed its generator uses.
func (s *Service) Seeds() map[uint8]int64 {
	out := make(map[uint8]int64, len(s.runtimes))
	for id, rt := range s.runtimes {
		out[uint8(id)] = rt.Seed
	}
	return out
}

// SavedRegion describes one region written by SnapshotDirty.
type SavedRegion struct {
	Coord  coord.UniversalRegionCoord
	Path   string
	Chunks int
	Seq    uint64
	Seed   int64
}

// SnapshotDirty writes every region changed since the last call under
// dataDir. Regions that fail to write stay dirty.
func (s *Service) SnapshotDirty(dataDir string) ([]SavedRegion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := maps.Keys(s.dirty)
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Realm != b.Realm {
			return a.Realm < b.Realm
		}
		if a.Pos.X != b.Pos.X {
			return a.Pos.X < b.Pos.X
		}
		return a.Pos.Y < b.Pos.Y
	})

	var saved []SavedRegion
	for _, u := range keys {
		r, ok := s.terrain.FindRegion(u)
		if !ok {
			delete(s.dirty, u)
			continue
		}
		rt := s.runtimes[u.Realm]
		reg := snapshot.RegionV1{
			Header: snapshot.Header{
				Realm: uint8(u.Realm),
				RX:    u.Pos.X,
				RY:    u.Pos.Y,
				Seed:  rt.Seed,
				Seq:   rt.Gen.Seq(),
			},
			Chunks: world.ExportRegion(r),
		}
		path := snapshot.RegionPath(dataDir, uint8(u.Realm), u.Pos.X, u.Pos.Y)
		if err := snapshot.WriteRegion(path, reg); err != nil {
			return saved, fmt.Errorf("snapshot %v: %w", u, err)
		}
		delete(s.dirty, u)
		saved = append(saved, SavedRegion{Coord: u, Path: path, Chunks: len(reg.Chunks), Seq: reg.Header.Seq, Seed: rt.Seed})
	}
	return saved, nil
}

// Close rejects further requests.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
