// Package chunk holds the block grid of a single chunk and its wire encoding.
package chunk

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"terragen.ai/internal/terrain/coord"
)

const Cells = coord.ChunkSize * coord.ChunkSize

var ErrMalformedRLE = errors.New("malformed chunk rle")

// MapChunk is the block grid of one chunk, indexed x + y*ChunkSize.
type MapChunk struct {
	Blocks [Cells]BlockID
}

func index(x, y int) int { return x + y*coord.ChunkSize }

func (c *MapChunk) At(x, y int) BlockID { return c.Blocks[index(x, y)] }

func (c *MapChunk) Set(x, y int, b BlockID) { c.Blocks[index(x, y)] = b }

func (c *MapChunk) AtIdx(i coord.BlockIdx) BlockID { return c.At(i.X, i.Y) }

func (c *MapChunk) SetIdx(i coord.BlockIdx, b BlockID) { c.Set(i.X, i.Y, b) }

// Count returns how many cells hold b.
func (c *MapChunk) Count(b BlockID) int {
	n := 0
	for _, v := range c.Blocks {
		if v == b {
			n++
		}
	}
	return n
}

// Digest is a content hash for change detection.
func (c *MapChunk) Digest() string {
	var buf [Cells * 2]byte
	for i, v := range c.Blocks {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	sum := sha256.Sum256(buf[:])
	return hex.EncodeToString(sum[:])
}

// AppendRLE appends the run-length encoding of c to dst. A run of one is a
// single little-endian uint16 with the top bit set; longer runs are the id
// followed by a uint16 count.
func (c *MapChunk) AppendRLE(dst []byte) []byte {
	for i := 0; i < Cells; {
		id := c.Blocks[i]
		n := 1
		for i+n < Cells && c.Blocks[i+n] == id {
			n++
		}
		if n == 1 {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(id)|rleSingleBit)
		} else {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(id))
			dst = binary.LittleEndian.AppendUint16(dst, uint16(n))
		}
		i += n
	}
	return dst
}

func (c *MapChunk) ToRLE() []byte { return c.AppendRLE(nil) }

// FromRLE decodes data into c and reports whether any block changed. On error
// the cells decoded before the bad run are kept.
func (c *MapChunk) FromRLE(data []byte) (bool, error) {
	changed := false
	i := 0
	for len(data) > 0 {
		if len(data) < 2 {
			return changed, fmt.Errorf("%w: trailing byte at cell %d", ErrMalformedRLE, i)
		}
		word := binary.LittleEndian.Uint16(data)
		data = data[2:]
		id := BlockID(word &^ rleSingleBit)
		n := 1
		if word&rleSingleBit == 0 {
			if len(data) < 2 {
				return changed, fmt.Errorf("%w: missing count at cell %d", ErrMalformedRLE, i)
			}
			n = int(binary.LittleEndian.Uint16(data))
			data = data[2:]
			if n == 0 {
				return changed, fmt.Errorf("%w: zero length run at cell %d", ErrMalformedRLE, i)
			}
		}
		if i+n > Cells {
			return changed, fmt.Errorf("%w: run of %d overflows chunk at cell %d", ErrMalformedRLE, n, i)
		}
		for end := i + n; i < end; i++ {
			if c.Blocks[i] != id {
				c.Blocks[i] = id
				changed = true
			}
		}
	}
	if i != Cells {
		return changed, fmt.Errorf("%w: decoded %d of %d cells", ErrMalformedRLE, i, Cells)
	}
	return changed, nil
}
