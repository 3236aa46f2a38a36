package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"terragen.ai/internal/observerproto"
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/gen"
	"terragen.ai/internal/terrain/realm"
)

// Server is a loopback-only admin feed: a bootstrap snapshot of every
// realm's generator plus a websocket that receives one BATCH message per
// generation batch. Register it with realm.Service.AddSink.
type Server struct {
	svc *realm.Service
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu   sync.Mutex
	subs map[string]*subscriber
}

type subscriber struct {
	out    chan []byte
	realms map[uint8]bool
}

func NewServer(svc *realm.Service, logger *log.Logger) *Server {
	return &Server{
		svc: svc,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: map[string]*subscriber{},
	}
}

// RecordBatch fans a batch out to subscribers. Slow subscribers lose
// messages instead of stalling generation.
func (s *Server) RecordBatch(st gen.BatchStats) {
	msg := observerproto.BatchMsg{
		Type:            "BATCH",
		ProtocolVersion: observerproto.Version,
		Realm:           uint8(st.Realm),
		Seq:             st.Seq,
		Min:             [2]int{st.Area.Min.X, st.Area.Min.Y},
		Max:             [2]int{st.Area.Max.X, st.Area.Max.Y},
		Generated:       st.Generated,
		NewChunks:       make([][2]int, 0, len(st.NewChunks)),
		Structures:      st.Structures,
		Evicted:         st.Evicted,
		DurationMS:      float64(st.Duration.Microseconds()) / 1000,
	}
	for _, c := range st.NewChunks {
		msg.NewChunks = append(msg.NewChunks, [2]int{c.X, c.Y})
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if len(sub.realms) > 0 && !sub.realms[msg.Realm] {
			continue
		}
		select {
		case sub.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			ChunkSize:       coord.ChunkSize,
			RegionSize:      coord.RegionSize,
			BlockPalette:    blockPalette(),
		}
		for _, id := range gen.Layers() {
			resp.Layers = append(resp.Layers, id.String())
		}
		for _, st := range s.svc.Stats() {
			resp.Realms = append(resp.Realms, observerproto.RealmState{
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

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := make(chan []byte, 256)
		s.mu.Lock()
		s.subs[sid] = &subscriber{out: out, realms: realmSet(sub.Realms)}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.subs, sid)
			s.mu.Unlock()
		}()
		s.printf("observer %s subscribed realms=%v", sid, sub.Realms)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := decodeSubscribe(msg)
			if !ok {
				continue
			}
			s.mu.Lock()
			if cur := s.subs[sid]; cur != nil {
				cur.realms = realmSet(sub.Realms)
			}
			s.mu.Unlock()
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	return sub, true
}

func realmSet(ids []uint8) map[uint8]bool {
	if len(ids) == 0 {
		return nil
	}
	m := make(map[uint8]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func blockPalette() []string {
	var out []string
	for id := chunk.BlockID(0); id.Valid(); id++ {
		out = append(out, id.String())
	}
	return out
}

func (s *Server) printf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
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
