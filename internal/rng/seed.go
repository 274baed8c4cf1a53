package rng

import "github.com/dgryski/go-farm"

// SeedFromString derives a seed from an arbitrary phrase using FarmHash
// Fingerprint32, whose output is fixed across platforms and library versions.
func SeedFromString(phrase string) uint32 {
	return farm.Fingerprint32([]byte(phrase))
}
