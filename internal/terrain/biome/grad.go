package biome

// inGrad blends from 1 at the surface down to 0 at depth 1/scale.
func inGrad(h float64, y int, scale float64) float64 {
	return maxF(0, 1-(h-float64(y))*scale)
}

// outGrad blends from 0 at the surface up to -1 at height 1/scale.
func outGrad(h float64, y int, scale float64) float64 {
	return maxF(-1, (h-float64(y))*scale)
}

// heightGrad is 1 at or below h and fades to -1 over fade blocks above it.
func heightGrad(h, y, fade int) float64 {
	if y > h {
		return maxF(-1, 1+float64(h-y)*(2/float64(fade)))
	}
	return 1
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clamp1(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
