package distribution

import "math/bits"

const sobolBits = 32

// sobolDirections holds the direction numbers of the first two Sobol
// dimensions: the van der Corput sequence and the primitive polynomial
// x + 1 with m1 = 1.
var sobolDirections = func() [2][sobolBits]uint32 {
	var v [2][sobolBits]uint32
	for k := 0; k < sobolBits; k++ {
		v[0][k] = 1 << (sobolBits - 1 - k)
	}
	v[1][0] = 1 << (sobolBits - 1)
	for k := 1; k < sobolBits; k++ {
		v[1][k] = v[1][k-1] ^ (v[1][k-1] >> 1)
	}
	return v
}()

// sobolSequence returns n points of the 2-D Sobol sequence in Gray code
// order, skipping the all-zero first point.
func sobolSequence(n int) [][2]float64 {
	out := make([][2]float64, n)
	var x [2]uint32
	for i := 0; i < n; i++ {
		c := bits.TrailingZeros32(^uint32(i))
		x[0] ^= sobolDirections[0][c]
		x[1] ^= sobolDirections[1][c]
		out[i] = [2]float64{float64(x[0]) / (1 << sobolBits), float64(x[1]) / (1 << sobolBits)}
	}
	return out
}
