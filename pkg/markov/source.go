package markov

import (
	"math/rand/v2"
	"sync"
)

// Source supplies the randomness used to choose among successors. IntN must
// return a value in [0, n) for any n > 0. A *rand.Rand from math/rand/v2
// satisfies Source but is not safe for concurrent use on its own.
type Source interface {
	IntN(n int) int
}

// globalSource uses the math/rand/v2 top-level generator, which is safe for
// concurrent use.
type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

// lockedSource serializes access to a seeded generator.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a deterministic Source seeded with seed. Two sources
// with the same seed produce the same sequence of choices. The returned Source
// is safe for concurrent use, although the interleaving of choices between
// goroutines is then no longer deterministic.
func NewSeededSource(seed uint64) Source {
	return &lockedSource{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
