package sampling

import (
	"math"
	"math/rand"
	"testing"
)

func TestWeighted(t *testing.T) {
	t.Run("no positive weight", func(t *testing.T) {
		r := rand.New(rand.NewSource(1))
		if got := Weighted(r, []float64{0, -1, math.NaN()}); got != -1 {
			t.Fatalf("expected -1, got %d", got)
		}
	})

	t.Run("single candidate", func(t *testing.T) {
		r := rand.New(rand.NewSource(1))
		for i := 0; i < 50; i++ {
			if got := Weighted(r, []float64{0, 3, 0}); got != 1 {
				t.Fatalf("expected 1, got %d", got)
			}
		}
	})

	t.Run("proportional", func(t *testing.T) {
		r := rand.New(rand.NewSource(7))
		counts := make([]int, 2)
		for i := 0; i < 10000; i++ {
			counts[Weighted(r, []float64{1, 3})]++
		}
		ratio := float64(counts[1]) / float64(counts[0])
		if ratio < 2.5 || ratio > 3.5 {
			t.Fatalf("expected ratio near 3, got %.2f", ratio)
		}
	})

	t.Run("reproducible", func(t *testing.T) {
		a := rand.New(rand.NewSource(99))
		b := rand.New(rand.NewSource(99))
		weights := []float64{0.2, 0.5, 1.3, 0.1}
		for i := 0; i < 100; i++ {
			if Weighted(a, weights) != Weighted(b, weights) {
				t.Fatalf("expected identical draws at step %d", i)
			}
		}
	})
}

func TestRollAndBetween(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	if Roll(r, 0) {
		t.Fatalf("expected zero probability to fail")
	}
	if !Roll(r, 1.2) {
		t.Fatalf("expected certain roll to pass")
	}
	for i := 0; i < 100; i++ {
		v := Between(r, 0.2, 0.6)
		if v < 0.2 || v > 0.6 {
			t.Fatalf("value %v outside range", v)
		}
	}
	if Between(r, 0.5, 0.5) != 0.5 {
		t.Fatalf("expected degenerate range to return lo")
	}
	if Index(r, 0) != -1 {
		t.Fatalf("expected -1 for empty index")
	}
}
