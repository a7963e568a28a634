// Package chance supplies the randomness used by the simulated parts of the
// console. Everything random goes through Source so tests can pin outcomes.
package chance

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Source yields uniformly distributed values.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

type global struct{}

func (global) Float64() float64 { return rand.Float64() }
func (global) IntN(n int) int { return rand.IntN(n) }

// Default returns the process-wide generator, safe for concurrent use.
func Default() Source { return global{} }

// Seeded returns a deterministic, goroutine-safe source.
func Seeded(seed uint64) Source {
	return &locked{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Uniform returns a value in [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Bernoulli reports true with probability p.
func Bernoulli(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	return src.Float64() < p
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Pick returns a uniformly chosen index of a collection of size n, or -1.
func Pick(src Source, n int) int {
	if n <= 0 {
		return -1
	}
	return src.IntN(n)
}
