// Package sampling draws from a seeded source in a reproducible way.
// Callers pass candidates in a stable order; map iteration never reaches here.
package sampling

import (
	"math"
	"math/rand"
)

// Weighted returns an index chosen with probability proportional to its
// weight, or -1 when no weight is positive. Non-finite and negative
// weights count as zero.
func Weighted(r *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if valid(w) {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	x := r.Float64() * total
	last := -1
	for i, w := range weights {
		if !valid(w) {
			continue
		}
		last = i
		if x < w {
			return i
		}
		x -= w
	}
	return last
}

// Index returns a uniform index in [0, n), or -1 when n is zero.
func Index(r *rand.Rand, n int) int {
	if n <= 0 {
		return -1
	}
	return r.Intn(n)
}

// Roll reports whether a uniform draw falls below p.
func Roll(r *rand.Rand, p float64) bool {
	if p <= 0 || math.IsNaN(p) {
		return false
	}
	if p >= 1 {
		r.Float64()
		return true
	}
	return r.Float64() < p
}

// Between returns a uniform value in [lo, hi].
func Between(r *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	v := lo + r.Float64()*(hi-lo)
	return math.Min(hi, math.Max(lo, v))
}

func valid(w float64) bool {
	return w > 0 && !math.IsNaN(w) && !math.IsInf(w, 0)
}
