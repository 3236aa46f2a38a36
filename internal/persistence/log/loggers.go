package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"terragen.ai/internal/terrain/gen"
)

// JSONLZstdWriter appends JSON lines to an hourly rotated zstd file.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// BatchEntry is one generation batch as written to the event log.
type BatchEntry struct {
	Seq        uint64         `json:"seq"`
	Realm      uint8          `json:"realm"`
	Min        [2]int         `json:"min"`
	Max        [2]int         `json:"max"`
	Generated  map[string]int `json:"generated"`
	NewChunks  int            `json:"new_chunks"`
	Structures int            `json:"structures"`
	Evicted    int            `json:"evicted"`
	DurationMS float64        `json:"duration_ms"`
	Digest     string         `json:"digest,omitempty"`
	At         string         `json:"at"`
}

func EntryFromStats(st gen.BatchStats, at time.Time) BatchEntry {
	return BatchEntry{
		Seq:        st.Seq,
		Realm:      uint8(st.Realm),
		Min:        [2]int{st.Area.Min.X, st.Area.Min.Y},
		Max:        [2]int{st.Area.Max.X, st.Area.Max.Y},
		Generated:  st.Generated,
		NewChunks:  len(st.NewChunks),
		Structures: st.Structures,
		Evicted:    st.Evicted,
		DurationMS: float64(st.Duration.Microseconds()) / 1000,
		Digest:     st.Digest,
		At:         at.UTC().Format(time.RFC3339Nano),
	}
}

// BatchLogger writes one compressed JSONL entry per generation batch.
type BatchLogger struct {
	w       *JSONLZstdWriter
	onError func(error)
}

func NewBatchLogger(dataDir string, onError func(error)) *BatchLogger {
	return &BatchLogger{
		w:       NewJSONLZstdWriter(filepath.Join(dataDir, "events"), "batches"),
		onError: onError,
	}
}

func (l *BatchLogger) WriteBatch(v BatchEntry) error { return l.w.Write(v) }

// RecordBatch lets the logger sit behind the realm service. Write errors go
// to onError.
func (l *BatchLogger) RecordBatch(st gen.BatchStats) {
	if err := l.WriteBatch(EntryFromStats(st, time.Now())); err != nil && l.onError != nil {
		l.onError(err)
	}
}

func (l *BatchLogger) Close() error { return l.w.Close() }

// ReadBatchLog reads every batch entry under dir in file order. A negative
// realm matches every realm.
func ReadBatchLog(dir string, realmID int) ([]BatchEntry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "batches-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]BatchEntry, 0, 256)
	for _, name := range names {
		entries, err := readBatchFile(filepath.Join(dir, name), realmID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, entries...)
	}
	return out, nil
}

func readBatchFile(path string, realmID int) ([]BatchEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []BatchEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e BatchEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		if realmID >= 0 && int(e.Realm) != realmID {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
