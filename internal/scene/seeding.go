package scene

import (
	"hash/fnv"
	"math/rand"
)

// DeterministicSeedValue hashes the root seed with a subsystem label so each
// generator (buildings, windows, lamps, particles, shake) draws from its own
// stream while the whole scene stays a pure function of the root seed.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewDeterministicRNG builds the seeded generator for a subsystem label.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}
