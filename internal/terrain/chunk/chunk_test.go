package chunk

import (
	"errors"
	"math/rand"
	"testing"
)

func roundTrip(t *testing.T, name string, src *MapChunk) {
	t.Helper()
	rle := src.ToRLE()
	var dst MapChunk
	if _, err := dst.FromRLE(rle); err != nil {
		t.Fatalf("%s: FromRLE: %v", name, err)
	}
	if dst != *src {
		t.Fatalf("%s: round trip mismatch", name)
	}
	if dst.Digest() != src.Digest() {
		t.Fatalf("%s: digest mismatch", name)
	}
}

func TestRLERoundTripAllAir(t *testing.T) {
	var c MapChunk
	roundTrip(t, "air", &c)
	if got := len(c.ToRLE()); got != 4 {
		t.Fatalf("all-air rle size: got %d want 4", got)
	}
}

func TestRLERoundTripSingleBlock(t *testing.T) {
	var c MapChunk
	for i := range c.Blocks {
		c.Blocks[i] = Stone
	}
	roundTrip(t, "stone", &c)
}

func TestRLERoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for n := 0; n < 50; n++ {
		var c MapChunk
		for i := range c.Blocks {
			if r.Intn(3) == 0 {
				c.Blocks[i] = BlockID(r.Intn(int(blockIDCount)))
			} else if i > 0 {
				c.Blocks[i] = c.Blocks[i-1]
			}
		}
		roundTrip(t, "random", &c)
	}
}

func TestRLESingleRunsUseTopBit(t *testing.T) {
	var c MapChunk
	c.Blocks[0] = Grass
	rle := c.ToRLE()
	if len(rle) != 6 {
		t.Fatalf("rle size: got %d want 6", len(rle))
	}
	if rle[1]&0x80 == 0 {
		t.Fatalf("single run missing marker bit: % x", rle[:2])
	}
}

func TestFromRLEReportsChange(t *testing.T) {
	var a, b MapChunk
	a.Set(3, 4, Gold)
	changed, err := b.FromRLE(a.ToRLE())
	if err != nil || !changed {
		t.Fatalf("first decode: changed=%v err=%v", changed, err)
	}
	changed, err = b.FromRLE(a.ToRLE())
	if err != nil || changed {
		t.Fatalf("second decode: changed=%v err=%v", changed, err)
	}
	if b.At(3, 4) != Gold {
		t.Fatalf("At: got %v want gold", b.At(3, 4))
	}
}

func TestFromRLEMalformed(t *testing.T) {
	var c MapChunk
	cases := map[string][]byte{
		"odd":      {0x01},
		"nocount":  {0x01, 0x00},
		"overflow": {0x01, 0x00, 0x01, 0x01},
		"short":    {0x01, 0x00, 0x10, 0x00},
		"zero":     {0x01, 0x00, 0x00, 0x00},
	}
	for name, data := range cases {
		if _, err := c.FromRLE(data); !errors.Is(err, ErrMalformedRLE) {
			t.Fatalf("%s: got %v want ErrMalformedRLE", name, err)
		}
	}
}
