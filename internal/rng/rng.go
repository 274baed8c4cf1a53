// Package rng provides a deterministic counter-based random number generator.
//
// Every sample is a pure function of the seed and the position counter, so two
// generators built from the same seed and driven by the same sequence of calls
// produce bit-identical output. The generator is NOT cryptographically secure.
package rng

import "math"

// Hash constants for the position mangling. All three are odd.
const (
	noise1 uint32 = 0x68E31DA4
	noise2 uint32 = 0xB5297A4D
	noise3 uint32 = 0x1B56C4E9
)

// belowOne is the largest float64 strictly less than 1.
var belowOne = math.Nextafter(1, 0)

// RNG is a stateful uniform generator. It is not safe for concurrent use;
// give each goroutine its own instance.
type RNG struct {
	seed uint32
	pos  uint32
}

// New creates a generator for the given seed with the position counter at 1.
func New(seed uint32) *RNG {
	return &RNG{seed: seed, pos: 1}
}

// Seed returns the seed the generator was built with
func (r *RNG) Seed() uint32 {
	return r.seed
}

// Position returns the counter value the next Sample call will hash.
func (r *RNG) Position() uint32 {
	return r.pos
}

// Sample returns a uniform float64 in [0, 1) and advances the position by one.
// Position and arithmetic wrap modulo 2^32.
func (r *RNG) Sample() float64 {
	m := hash(r.pos, r.seed)
	r.pos++
	return unit(m)
}

// unit normalizes a hash value by MaxUint32. MaxUint32 itself would land on
// exactly 1, so it is pulled just below.
func unit(m uint32) float64 {
	if m == math.MaxUint32 {
		return belowOne
	}
	return float64(m) / math.MaxUint32
}

func hash(pos, seed uint32) uint32 {
	m := pos
	m *= noise1
	m += seed
	m ^= m >> 8
	m += noise2
	m ^= m << 8
	m *= noise3
	m ^= m >> 8
	return m
}
