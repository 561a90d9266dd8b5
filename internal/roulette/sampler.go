package roulette

import (
	"math/rand/v2"
	"sync"
)

// Random is the randomness source for sampling. Float64 returns a value in
// [0, 1).
type Random interface {
	Float64() float64
}

// NewSeededRandom returns a deterministic PCG-backed source. It is not safe
// for concurrent use; wrap it with NewLockedRandom when shared.
func NewSeededRandom(seed uint64) Random {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewLockedRandom serializes access to r.
func NewLockedRandom(r Random) Random {
	return &lockedRandom{r: r}
}

type lockedRandom struct {
	mu sync.Mutex
	r  Random
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// FixedRandom replays Values in order, wrapping around. An empty
// FixedRandom always returns 0.
type FixedRandom struct {
	Values []float64
	next   int
}

// Float64 implements Random.
func (f *FixedRandom) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}

// Sample returns the index chosen from weights by a cumulative walk: with
// T = Σw and r uniform in [0, T), the first index whose running sum
// exceeds r wins. It returns -1 when weights is empty or T is not positive.
//
// Weights must be positive; the walk order is the slice order, so a fixed
// random sequence reproduces the same pick.
func Sample(weights []float64, rng Random) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if len(weights) == 0 || total <= 0 {
		return -1
	}

	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if cumulative > r {
			return i
		}
	}
	// Rounding can leave r == cumulative on the final item.
	return len(weights) - 1
}
