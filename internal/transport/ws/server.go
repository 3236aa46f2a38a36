package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"terragen.ai/internal/protocol"
	"terragen.ai/internal/terrain/coord"
	"terragen.ai/internal/terrain/realm"
)

// Server streams generated chunks to websocket clients. Each client sends
// HELLO, then any number of REQUEST_AREA messages; requests on one
// connection are answered in order.
type Server struct {
	svc *realm.Service
	log *log.Logger

	upgrader websocket.Upgrader
	sessions atomic.Uint64
}

func NewServer(svc *realm.Service, logger *log.Logger) *Server {
	s := &Server{
		svc: svc,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		session, out := s.handshake(conn)
		if session == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if !s.handleMessage(ctx, msg, out) {
				break
			}
		}
		cancel()
		<-writerDone
		s.printf("session %s closed", session)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (session string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	session = fmt.Sprintf("S%d", s.sessions.Add(1))
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       session,
		ChunkSize:       coord.ChunkSize,
		RegionSize:      coord.RegionSize,
		MaxAreaChunks:   s.svc.MaxAreaChunks(),
	}
	for _, r := range s.svc.Realms() {
		welcome.Realms = append(welcome.Realms, protocol.RealmRef{ID: uint8(r.ID), Name: r.Name})
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil
	}
	name := hello.ClientName
	if name == "" {
		name = "client"
	}
	s.printf("session %s opened name=%s", session, name)
	return session, out
}

// handleMessage answers one client message. It returns false once the
// connection is gone.
func (s *Server) handleMessage(ctx context.Context, msg []byte, out chan<- []byte) bool {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return send(ctx, out, errorMsg("", protocol.ErrProtoBadRequest, "malformed json"))
	}
	if base.Type != protocol.TypeRequestArea {
		return send(ctx, out, errorMsg("", protocol.ErrProtoBadRequest, "unexpected message type "+base.Type))
	}
	var ra protocol.RequestAreaMsg
	if err := json.Unmarshal(msg, &ra); err != nil {
		return send(ctx, out, errorMsg("", protocol.ErrBadRequest, err.Error()))
	}

	res, err := s.svc.Generate(ctx, realm.Request{Realm: coord.RealmID(ra.Realm), Area: ra.Area()})
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		return send(ctx, out, errorMsg(ra.RequestID, errorCode(err), err.Error()))
	}
	for i := range res.Chunks {
		c := &res.Chunks[i]
		cm := protocol.NewChunkMsg(res.Stats.Realm, c.Pos, &c.Blocks, c.Entities)
		cm.RequestID = ra.RequestID
		if !send(ctx, out, cm) {
			return false
		}
	}
	return send(ctx, out, protocol.AreaDoneMsg{
		Type:            protocol.TypeAreaDone,
		ProtocolVersion: protocol.Version,
		RequestID:       ra.RequestID,
		Realm:           ra.Realm,
		Seq:             res.Stats.Seq,
		Chunks:          len(res.Chunks),
		NewChunks:       len(res.Stats.NewChunks),
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, realm.ErrUnknownRealm):
		return protocol.ErrUnknownRealm
	case errors.Is(err, realm.ErrAreaTooLarge):
		return protocol.ErrAreaTooLarge
	case errors.Is(err, realm.ErrEmptyArea), errors.Is(err, realm.ErrOutOfBounds):
		return protocol.ErrBadRequest
	case errors.Is(err, realm.ErrServiceClosed):
		return protocol.ErrServerClosing
	default:
		return protocol.ErrInternal
	}
}

func errorMsg(requestID, code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		RequestID:       requestID,
		Code:            code,
		Message:         message,
	}
}

// send blocks until the writer takes v, so a slow client applies
// backpressure to its own requests only.
func send(ctx context.Context, out chan<- []byte, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) printf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
