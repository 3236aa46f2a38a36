package protocol

import (
	"encoding/base64"
	"fmt"

	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/coord"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	ChunkSize       int        `json:"chunk_size"`
	RegionSize      int        `json:"region_size"`
	MaxAreaChunks   int        `json:"max_area_chunks"`
	Realms          []RealmRef `json:"realms"`
}

type RealmRef struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
}

// REQUEST_AREA (client -> server): chunk coordinates, min inclusive, max
// exclusive.
type RequestAreaMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
	Realm           uint8  `json:"realm"`
	Min             [2]int `json:"min"`
	Max             [2]int `json:"max"`
}

func (m RequestAreaMsg) Area() coord.ChunkArea {
	return coord.ChunkArea{
		Min: coord.ChunkVec{X: m.Min[0], Y: m.Min[1]},
		Max: coord.ChunkVec{X: m.Max[0], Y: m.Max[1]},
	}
}

// CHUNK (server -> client)
type ChunkMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	RequestID       string      `json:"request_id,omitempty"`
	Realm           uint8       `json:"realm"`
	Pos             [2]int      `json:"pos"`
	Encoding        string      `json:"encoding"`
	RLE             string      `json:"rle"`
	Entities        []EntityRef `json:"entities"`
}

type EntityRef struct {
	Type    string `json:"type"`
	Pos     [2]int `json:"pos"`
	Variant uint8  `json:"variant"`
	Size    [2]int `json:"size"`
}

// AREA_DONE (server -> client): sent after the last CHUNK of a request.
type AreaDoneMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Realm           uint8  `json:"realm"`
	Seq             uint64 `json:"seq"`
	Chunks          int    `json:"chunks"`
	NewChunks       int    `json:"new_chunks"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

const EncodingRLE = "RLE16_B64"

// NewChunkMsg encodes one chunk of a realm for the wire.
func NewChunkMsg(realm coord.RealmID, pos coord.ChunkVec, c *chunk.MapChunk, ents []chunk.BlockEntity) ChunkMsg {
	m := ChunkMsg{
		Type:            TypeChunk,
		ProtocolVersion: Version,
		Realm:           uint8(realm),
		Pos:             [2]int{pos.X, pos.Y},
		Encoding:        EncodingRLE,
		RLE:             base64.StdEncoding.EncodeToString(c.ToRLE()),
		Entities:        make([]EntityRef, 0, len(ents)),
	}
	for _, e := range ents {
		m.Entities = append(m.Entities, EntityRef{
			Type:    e.Type.String(),
			Pos:     [2]int{e.X, e.Y},
			Variant: e.Variant,
			Size:    [2]int{e.W, e.H},
		})
	}
	return m
}

// Blocks decodes the chunk payload.
func (m ChunkMsg) Blocks() (chunk.MapChunk, error) {
	var c chunk.MapChunk
	if m.Encoding != EncodingRLE {
		return c, fmt.Errorf("chunk %v: unsupported encoding %q", m.Pos, m.Encoding)
	}
	raw, err := base64.StdEncoding.DecodeString(m.RLE)
	if err != nil {
		return c, fmt.Errorf("chunk %v: %w", m.Pos, err)
	}
	if _, err := c.FromRLE(raw); err != nil {
		return c, fmt.Errorf("chunk %v: %w", m.Pos, err)
	}
	return c, nil
}
