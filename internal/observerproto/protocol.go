package observerproto

// Version is the observer protocol version (separate from the chunk-stream protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection; it can be
// re-sent to change the realm filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Realms limits the feed to these realm ids. Empty means every realm.
	Realms []uint8 `json:"realms,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	ChunkSize       int          `json:"chunk_size"`
	RegionSize      int          `json:"region_size"`
	Realms          []RealmState `json:"realms"`
	Layers          []string     `json:"layers"`
	BlockPalette    []string     `json:"block_palette"`
}

type RealmState struct {
	ID             uint8             `json:"id"`
	Name           string            `json:"name"`
	Seed           int64             `json:"seed"`
	Seq            uint64            `json:"seq"`
	CacheSizeBytes int               `json:"cache_size_bytes"`
	LoadedRegions  int               `json:"loaded_regions"`
	Generated      map[string]uint64 `json:"generated"`
}

// Server -> Client. Sent once per generation batch.
type BatchMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Realm           uint8          `json:"realm"`
	Seq             uint64         `json:"seq"`
	Min             [2]int         `json:"min"`
	Max             [2]int         `json:"max"`
	Generated       map[string]int `json:"generated"`
	NewChunks       [][2]int       `json:"new_chunks"`
	Structures      int            `json:"structures"`
	Evicted         int            `json:"evicted"`
	DurationMS      float64        `json:"duration_ms"`
}
