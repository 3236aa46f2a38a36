package mathx

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// DivFloor returns the floored quotient and the matching non-negative remainder.
func DivFloor(a, b int) (q, r int) {
	return FloorDiv(a, b), Mod(a, b)
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LCG advances a 64-bit linear congruential generator by one step.
func LCG(seed int64) int64 {
	return int64(uint64(seed)*6364136223846793005 + 1442695040888963407)
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 is a stateless 2D hash of a block or chunk coordinate.
func Hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Hash3 mixes a salt in as a third axis, giving independent streams over
// the same grid.
func Hash3(seed int64, x, y, salt int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	us := uint64(uint32(int32(salt)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (us * 0xc2b2ae3d27d4eb4f) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
