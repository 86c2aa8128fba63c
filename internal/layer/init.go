package layer

import (
	"math/rand/v2"
	"time"
)

// NewRand returns a deterministic generator for weight initialization.
//
// Two generators built from the same seed produce identical weights, which
// keeps sequential and parallel runs comparable.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// randOrDefault returns rng, or a time-seeded generator when rng is nil.
func randOrDefault(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return NewRand(uint64(time.Now().UnixNano()))
}

// gaussian fills weights with draws from N(0, std²).
func gaussian(rng *rand.Rand, weights []float64, std float64) {
	for i := range weights {
		weights[i] = rng.NormFloat64() * std
	}
}
