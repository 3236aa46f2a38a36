package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"terragen.ai/internal/protocol"
	"terragen.ai/internal/terrain/chunk"
)

// bot walks a window across the world over the streaming API, logging
// what each request loaded. It is a smoke test for a running server.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "client name")
		realm  = flag.Int("realm", 0, "realm id")
		startX = flag.Int("x", 0, "first window min chunk x")
		y      = flag.Int("y", -2, "window min chunk y")
		width  = flag.Int("w", 4, "window width in chunks")
		height = flag.Int("h", 4, "window height in chunks")
		stride = flag.Int("stride", 2, "chunks moved per step")
		steps  = flag.Int("steps", 16, "number of requests (0 walks until interrupted)")
		pause  = flag.Duration("pause", 250*time.Millisecond, "delay between requests")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	b := &bot{conn: conn, timeout: 30 * time.Second}
	w, err := b.hello(*name)
	if err != nil {
		logger.Fatalf("handshake: %v", err)
	}
	logger.Printf("WELCOME session=%s chunk_size=%d max_area=%d realms=%d", w.SessionID, w.ChunkSize, w.MaxAreaChunks, len(w.Realms))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for i := 0; *steps == 0 || i < *steps; i++ {
		select {
		case <-stop:
			return
		default:
		}
		x := *startX + i**stride
		req := protocol.RequestAreaMsg{
			Type:            protocol.TypeRequestArea,
			ProtocolVersion: protocol.Version,
			RequestID:       fmt.Sprintf("walk-%d", i),
			Realm:           uint8(*realm),
			Min:             [2]int{x, *y},
			Max:             [2]int{x + *width, *y + *height},
		}
		res, err := b.request(req)
		var perr *protocolError
		switch {
		case errors.As(err, &perr):
			logger.Printf("step=%d ERROR code=%s msg=%s", i, perr.Code, perr.Message)
		case err != nil:
			logger.Fatalf("step=%d: %v", i, err)
		default:
			logger.Printf("step=%d min=%v seq=%d chunks=%d new=%d solid=%d entities=%d took=%s",
				i, req.Min, res.Done.Seq, res.Chunks, res.Done.NewChunks, res.Solid, res.Entities, res.Took.Round(time.Millisecond))
		}
		time.Sleep(*pause)
	}
}

type bot struct {
	conn    *websocket.Conn
	timeout time.Duration
}

type areaResult struct {
	Done     protocol.AreaDoneMsg
	Chunks   int
	Solid    int
	Entities int
	Took     time.Duration
}

type protocolError struct {
	Code    string
	Message string
}

func (e *protocolError) Error() string { return e.Code + ": " + e.Message }

func (b *bot) hello(name string) (protocol.WelcomeMsg, error) {
	var w protocol.WelcomeMsg
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      name,
		MaxQueue:        32,
	}
	if err := b.conn.WriteJSON(hello); err != nil {
		return w, fmt.Errorf("send HELLO: %w", err)
	}
	typ, msg, err := b.read()
	if err != nil {
		return w, err
	}
	if typ != protocol.TypeWelcome {
		return w, fmt.Errorf("expected WELCOME, got %s", typ)
	}
	return w, json.Unmarshal(msg, &w)
}

// request sends one REQUEST_AREA and reads CHUNK messages until the matching
// AREA_DONE or ERROR.
func (b *bot) request(req protocol.RequestAreaMsg) (areaResult, error) {
	var res areaResult
	start := time.Now()
	if err := b.conn.WriteJSON(req); err != nil {
		return res, fmt.Errorf("send REQUEST_AREA: %w", err)
	}
	for {
		typ, msg, err := b.read()
		if err != nil {
			return res, err
		}
		switch typ {
		case protocol.TypeChunk:
			var c protocol.ChunkMsg
			if err := json.Unmarshal(msg, &c); err != nil {
				return res, err
			}
			blocks, err := c.Blocks()
			if err != nil {
				return res, err
			}
			res.Chunks++
			res.Solid += chunk.Cells - blocks.Count(chunk.Air)
			res.Entities += len(c.Entities)
		case protocol.TypeAreaDone:
			if err := json.Unmarshal(msg, &res.Done); err != nil {
				return res, err
			}
			if res.Done.RequestID != req.RequestID {
				continue
			}
			res.Took = time.Since(start)
			return res, nil
		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				return res, err
			}
			return res, &protocolError{Code: e.Code, Message: e.Message}
		}
	}
}

func (b *bot) read() (string, []byte, error) {
	if b.timeout > 0 {
		_ = b.conn.SetReadDeadline(time.Now().Add(b.timeout))
	}
	_, msg, err := b.conn.ReadMessage()
	if err != nil {
		return "", nil, err
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return "", nil, err
	}
	return base.Type, msg, nil
}
