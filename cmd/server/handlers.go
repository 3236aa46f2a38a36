package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"terragen.ai/internal/persistence/r2s3"
	"terragen.ai/internal/terrain/realm"
	"terragen.ai/internal/transport/observer"
)

type regionRecorder interface {
	RecordRegion(sr realm.SavedRegion)
}

// snapshotter writes dirty regions to disk and hands each saved region to
// the recorders (index, mirror). The periodic loop and the admin endpoint
// share it.
type snapshotter struct {
	svc       *realm.Service
	recorders []regionRecorder
	dataDir   string
	log       *log.Logger

	mu sync.Mutex
}

func (s *snapshotter) once() ([]realm.SavedRegion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, err := s.svc.SnapshotDirty(s.dataDir)
	for _, sr := range saved {
		for _, rec := range s.recorders {
			rec.RecordRegion(sr)
		}
	}
	if err != nil {
		s.printf("snapshot: %v", err)
	} else if len(saved) > 0 {
		s.printf("snapshot: wrote %d regions", len(saved))
	}
	return saved, err
}

func (s *snapshotter) run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = s.once()
		}
	}
}

func (s *snapshotter) printf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func metricsHandler(svc *realm.Service, obs *observer.Server, mirror *r2s3.Mirror) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		stats := svc.Stats()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP terragen_realm_seq Generation batches run per realm.\n")
		fmt.Fprintf(rw, "# TYPE terragen_realm_seq counter\n")
		for _, st := range stats {
			fmt.Fprintf(rw, "terragen_realm_seq{realm=%q} %d\n", st.Spec.Name, st.Seq)
		}
		fmt.Fprintf(rw, "# HELP terragen_cache_size_bytes Approximate layer cache size.\n")
		fmt.Fprintf(rw, "# TYPE terragen_cache_size_bytes gauge\n")
		for _, st := range stats {
			fmt.Fprintf(rw, "terragen_cache_size_bytes{realm=%q} %d\n", st.Spec.Name, st.CacheSizeBytes)
		}
		fmt.Fprintf(rw, "# HELP terragen_loaded_regions Regions holding loaded chunks.\n")
		fmt.Fprintf(rw, "# TYPE terragen_loaded_regions gauge\n")
		for _, st := range stats {
			fmt.Fprintf(rw, "terragen_loaded_regions{realm=%q} %d\n", st.Spec.Name, st.LoadedRegions)
		}
		fmt.Fprintf(rw, "# HELP terragen_layer_generate_total Layer generate calls.\n")
		fmt.Fprintf(rw, "# TYPE terragen_layer_generate_total counter\n")
		for _, st := range stats {
			layers := make([]string, 0, len(st.Generated))
			for name := range st.Generated {
				layers = append(layers, name)
			}
			sort.Strings(layers)
			for _, name := range layers {
				fmt.Fprintf(rw, "terragen_layer_generate_total{realm=%q,layer=%q} %d\n", st.Spec.Name, name, st.Generated[name])
			}
		}
		if obs != nil {
			fmt.Fprintf(rw, "# HELP terragen_observer_subscribers Connected observer feeds.\n")
			fmt.Fprintf(rw, "# TYPE terragen_observer_subscribers gauge\n")
			fmt.Fprintf(rw, "terragen_observer_subscribers %d\n", obs.Subscribers())
			fmt.Fprintf(rw, "# HELP terragen_observer_dropped_total Batch messages dropped for slow observers.\n")
			fmt.Fprintf(rw, "# TYPE terragen_observer_dropped_total counter\n")
			fmt.Fprintf(rw, "terragen_observer_dropped_total %d\n", obs.Dropped())
		}
		if mirror != nil {
			ms := mirror.Stats()
			fmt.Fprintf(rw, "# HELP terragen_mirror_queue_depth Region uploads waiting.\n")
			fmt.Fprintf(rw, "# TYPE terragen_mirror_queue_depth gauge\n")
			fmt.Fprintf(rw, "terragen_mirror_queue_depth %d\n", ms.QueueDepth)
			fmt.Fprintf(rw, "# HELP terragen_mirror_uploads_total Region uploads by result.\n")
			fmt.Fprintf(rw, "# TYPE terragen_mirror_uploads_total counter\n")
			fmt.Fprintf(rw, "terragen_mirror_uploads_total{result=\"ok\"} %d\n", ms.UploadSuccessTotal)
			fmt.Fprintf(rw, "terragen_mirror_uploads_total{result=\"fail\"} %d\n", ms.UploadFailTotal)
			fmt.Fprintf(rw, "terragen_mirror_uploads_total{result=\"dropped\"} %d\n", ms.DroppedTotal)
		}
	}
}

type stateRealm struct {
	ID             uint8             `json:"id"`
	Name           string            `json:"name"`
	Seed           int64             `json:"seed"`
	Seq            uint64            `json:"seq"`
	CacheSizeBytes int               `json:"cache_size_bytes"`
	LoadedRegions  int               `json:"loaded_regions"`
	Generated      map[string]uint64 `json:"generated"`
}

// Local-only admin endpoints.
func stateHandler(svc *realm.Service) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := struct {
			MaxAreaChunks int          `json:"max_area_chunks"`
			Realms        []stateRealm `json:"realms"`
		}{MaxAreaChunks: svc.MaxAreaChunks()}
		for _, st := range svc.Stats() {
			resp.Realms = append(resp.Realms, stateRealm{
				ID:             uint8(st.Spec.ID),
				Name:           st.Spec.Name,
				Seed:           st.Seed,
				Seq:            st.Seq,
				CacheSizeBytes: st.CacheSizeBytes,
				LoadedRegions:  st.LoadedRegions,
				Generated:      st.Generated,
			})
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func snapshotHandler(snaps *snapshotter) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		saved, err := snaps.once()
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "regions": len(saved), "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "regions": len(saved)})
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
