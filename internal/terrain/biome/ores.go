package biome

import (
	"terragen.ai/internal/terrain/chunk"
	"terragen.ai/internal/terrain/mathx"
)

// inCluster reports whether (x, y) falls inside a hashed blob. Each grid cell
// is active with probability probPermille/1000 and holds one blob of the
// given radius at a hashed offset. salt picks an independent blob stream.
func inCluster(seed int64, salt, x, y, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := mathx.FloorDiv(x, grid)
	gy := mathx.FloorDiv(y, grid)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := mathx.Hash3(seed, cgx, cgy, salt)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oy := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cy := cgy*grid + oy

			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}

type oreRule struct {
	salt     int
	block    chunk.BlockID
	minDepth int
	grid     int
	radius   int
	permille uint64
}

// Deeper and rarer first.
var oreRules = [...]oreRule{
	{salt: 103, block: chunk.GoldOre, minDepth: 48, grid: 96, radius: 2, permille: 250},
	{salt: 102, block: chunk.IronOre, minDepth: 20, grid: 64, radius: 3, permille: 400},
	{salt: 101, block: chunk.CoalOre, minDepth: 6, grid: 32, radius: 3, permille: 550},
}

// oreAt returns the ore at (x, y) for a block depth below the surface, or
// fallback.
func oreAt(seed int64, x, y, depth int, fallback chunk.BlockID) chunk.BlockID {
	for _, r := range oreRules {
		if depth < r.minDepth {
			continue
		}
		if inCluster(seed, r.salt, x, y, r.grid, r.radius, r.permille) {
			return r.block
		}
	}
	return fallback
}
