// Package snapshot stores generated regions on disk: one JSON header line
// followed by a gob body, all inside a zstd stream.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Realm   uint8  `json:"realm"`
	RX      int    `json:"rx"`
	RY      int    `json:"ry"`
	Seed    int64  `json:"seed"`
	Seq     uint64 `json:"seq"`
	Chunks  int    `json:"chunks"`
}

type RegionV1 struct {
	Header Header `json:"header"`

	Chunks []ChunkV1 `json:"chunks"`
}

// ChunkV1 is one loaded chunk. IX/IY are the offset inside the region and
// RLE is the chunk's run-length block encoding.
type ChunkV1 struct {
	IX       int        `json:"ix"`
	IY       int        `json:"iy"`
	RLE      []byte     `json:"rle"`
	Entities []EntityV1 `json:"entities,omitempty"`
}

type EntityV1 struct {
	Type    uint8 `json:"type"`
	X       int   `json:"x"`
	Y       int   `json:"y"`
	Variant uint8 `json:"variant"`
	W       int   `json:"w"`
	H       int   `json:"h"`
}

// RegionPath is the conventional location of a region snapshot under dataDir.
func RegionPath(dataDir string, realm uint8, rx, ry int) string {
	return filepath.Join(dataDir, "regions", fmt.Sprintf("realm-%d", realm), fmt.Sprintf("r.%d.%d.region.zst", rx, ry))
}

// ListRegions returns every region snapshot under dataDir in path order.
func ListRegions(dataDir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dataDir, "regions", "realm-*", "r.*.region.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func WriteRegion(path string, reg RegionV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	reg.Header.Version = Version
	reg.Header.Chunks = len(reg.Chunks)

	bw := bufio.NewWriterSize(enc, 256*1024)
	hb, _ := json.Marshal(reg.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&reg); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return f.Sync()
}

func ReadRegion(path string) (RegionV1, error) {
	var reg RegionV1
	f, err := os.Open(path)
	if err != nil {
		return reg, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return reg, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header, the line is for cheap inspection.
	if _, err := br.ReadBytes('\n'); err != nil {
		return reg, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&reg); err != nil {
		return reg, fmt.Errorf("gob decode: %w", err)
	}
	if reg.Header.Version != Version {
		return reg, fmt.Errorf("unsupported region snapshot version %d", reg.Header.Version)
	}
	return reg, nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
