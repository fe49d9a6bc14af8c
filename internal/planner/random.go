package planner

import "math/rand/v2"

// Rand is the source of randomness used for shortlist sampling and local picks.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalRand uses the package-level generator, which is safe for concurrent use.
type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultRand returns a concurrency-safe random source.
func DefaultRand() Rand {
	return globalRand{}
}
