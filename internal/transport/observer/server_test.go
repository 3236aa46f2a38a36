package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"terragen.ai/internal/config"
	"terragen.ai/internal/observerproto"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/gen"
	"terragen.ai/internal/terrain/realm"
)

func newFixture(t *testing.T) (*Server, *realm.Service, *httptest.Server) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Realms = []config.RealmSpec{{ID: 0, Name: "overworld"}, {ID: 1, Name: "underworld", SeedOffset: 3}}
	svc, err := realm.NewService(cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	obs := NewServer(svc, nil)
	svc.AddSink(obs)

	mux := http.NewServeMux()
	mux.HandleFunc("/admin/v1/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/admin/v1/observer/ws", obs.WSHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return obs, svc, srv
}

func chunkArea(x0, y0, x1, y1 int) coord.ChunkArea {
	return coord.ChunkArea{Min: coord.ChunkVec{X: x0, Y: y0}, Max: coord.ChunkVec{X: x1, Y: y1}}
}

func TestBootstrap_ReportsRealms(t *testing.T) {
	_, svc, srv := newFixture(t)
	if _, err := svc.Generate(context.Background(), realm.Request{Realm: 1, Area: chunkArea(0, 0, 1, 1)}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	resp, err := http.Get(srv.URL + "/admin/v1/observer/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var boot observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(boot.Realms) != 2 || boot.Realms[1].Seq != 1 || boot.Realms[1].Seed != 1234+3 || boot.Realms[0].Seq != 0 {
		t.Fatalf("realms: %+v", boot.Realms)
	}
	if boot.BlockPalette[0] != "air" || len(boot.Layers) == 0 {
		t.Fatalf("palette=%v layers=%v", boot.BlockPalette, boot.Layers)
	}
}

func TestWS_StreamsFilteredBatches(t *testing.T) {
	obs, svc, srv := newFixture(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, Realms: []uint8{1}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for obs.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctx := context.Background()
	if _, err := svc.Generate(ctx, realm.Request{Realm: 0, Area: chunkArea(0, 0, 1, 1)}); err != nil {
		t.Fatalf("Generate realm 0: %v", err)
	}
	if _, err := svc.Generate(ctx, realm.Request{Realm: 1, Area: chunkArea(2, 0, 4, 1)}); err != nil {
		t.Fatalf("Generate realm 1: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg observerproto.BatchMsg
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "BATCH" || msg.Realm != 1 || msg.Seq != 1 || msg.Min != [2]int{2, 0} || len(msg.NewChunks) != 2 {
		t.Fatalf("batch: %+v", msg)
	}
}

func TestRecordBatch_DropsForSlowSubscribers(t *testing.T) {
	s := &Server{subs: map[string]*subscriber{"O1": {out: make(chan []byte, 1)}}}
	s.RecordBatch(gen.BatchStats{Seq: 1})
	s.RecordBatch(gen.BatchStats{Seq: 2})
	if s.Dropped() != 1 {
		t.Fatalf("dropped: got %d want 1", s.Dropped())
	}
}
