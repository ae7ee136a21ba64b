package anim

import "github.com/chewxy/math32"

// hash3 mixes three lattice coordinates and a seed into 32 bits.
func hash3(x, y, z int32, seed uint32) uint32 {
	h := seed ^ 0x9e3779b9
	h ^= uint32(x) * 0x85ebca6b
	h = (h << 13) | (h >> 19)
	h ^= uint32(y) * 0xc2b2ae35
	h = (h << 17) | (h >> 15)
	h ^= uint32(z) * 0x27d4eb2f
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return h
}

// Hash01 returns a deterministic value in [0, 1).
func Hash01(x, y, z int32, seed uint32) float32 {
	return float32(hash3(x, y, z, seed)>>8) / float32(1<<24)
}

func smooth(t float32) float32 { return t * t * (3 - 2*t) }

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

// Noise3 is trilinear value noise in [0, 1).
func Noise3(x, y, z float32, seed uint32) float32 {
	fx, fy, fz := math32.Floor(x), math32.Floor(y), math32.Floor(z)
	ix, iy, iz := int32(fx), int32(fy), int32(fz)
	tx, ty, tz := smooth(x-fx), smooth(y-fy), smooth(z-fz)

	c000 := Hash01(ix, iy, iz, seed)
	c100 := Hash01(ix+1, iy, iz, seed)
	c010 := Hash01(ix, iy+1, iz, seed)
	c110 := Hash01(ix+1, iy+1, iz, seed)
	c001 := Hash01(ix, iy, iz+1, seed)
	c101 := Hash01(ix+1, iy, iz+1, seed)
	c011 := Hash01(ix, iy+1, iz+1, seed)
	c111 := Hash01(ix+1, iy+1, iz+1, seed)

	x00 := lerp(c000, c100, tx)
	x10 := lerp(c010, c110, tx)
	x01 := lerp(c001, c101, tx)
	x11 := lerp(c011, c111, tx)
	return lerp(lerp(x00, x10, ty), lerp(x01, x11, ty), tz)
}

// FBM sums octaves of Noise3, normalized to [0, 1).
func FBM(x, y, z float32, octaves int, seed uint32) float32 {
	var sum, norm float32
	amp, freq := float32(1), float32(1)
	for o := 0; o < octaves; o++ {
		sum += amp * Noise3(x*freq, y*freq, z*freq, seed+uint32(o)*1013)
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
