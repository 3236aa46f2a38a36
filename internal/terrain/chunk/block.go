package chunk

// BlockID identifies a block kind. The top bit is reserved by the RLE codec.
type BlockID uint16

const (
	Air BlockID = iota
	Dirt
	Grass
	Stone
	MountainStone
	Sand
	Gold
	Wood
	Leaves
	CoalOre
	IronOre
	GoldOre
	Debug
	Debug2
	Debug3

	blockIDCount
)

const rleSingleBit = 0x8000

var blockNames = [...]string{
	Air:           "air",
	Dirt:          "dirt",
	Grass:         "grass",
	Stone:         "stone",
	MountainStone: "mountain_stone",
	Sand:          "sand",
	Gold:          "gold",
	Wood:          "wood",
	Leaves:        "leaves",
	CoalOre:       "coal_ore",
	IronOre:       "iron_ore",
	GoldOre:       "gold_ore",
	Debug:         "debug",
	Debug2:        "debug2",
	Debug3:        "debug3",
}

func (b BlockID) Valid() bool { return b < blockIDCount }

func (b BlockID) String() string {
	if !b.Valid() {
		return "unknown"
	}
	return blockNames[b]
}

func (b BlockID) Solid() bool { return b != Air }

type BlockEntityType uint8

const (
	EntityTree BlockEntityType = iota + 1
)

func (t BlockEntityType) String() string {
	switch t {
	case EntityTree:
		return "tree"
	default:
		return "unknown"
	}
}

// BlockEntity is a spawn record attached to the chunk containing Pos.
type BlockEntity struct {
	Type    BlockEntityType `json:"type"`
	X       int             `json:"x"`
	Y       int             `json:"y"`
	Variant uint8           `json:"variant"`
	W       int             `json:"w"`
	H       int             `json:"h"`
}
