package backtest

import (
	"math"
	"math/big"
	"testing"
)

// exactBinomial computes C(n, r) through big integers for cross-checking
// the float implementation.
func exactBinomial(n, r int) float64 {
	f, _ := new(big.Float).SetInt(new(big.Int).Binomial(int64(n), int64(r))).Float64()
	return f
}

func TestBinomialMatchesExact(t *testing.T) {
	for _, n := range []int{1, 6, 13, 39, 45} {
		for r := 0; r <= n; r++ {
			got := Binomial(n, r)
			want := exactBinomial(n, r)
			if math.Abs(got-want) > 1e-9*want {
				t.Errorf("Binomial(%d, %d) = %v, want %v", n, r, got, want)
			}
		}
	}
}

func TestBinomialEdges(t *testing.T) {
	if got := Binomial(10, -1); got != 0 {
		t.Errorf("Binomial(10, -1) = %v, want 0", got)
	}
	if got := Binomial(10, 11); got != 0 {
		t.Errorf("Binomial(10, 11) = %v, want 0", got)
	}
	if got := Binomial(10, 0); got != 1 {
		t.Errorf("Binomial(10, 0) = %v, want 1", got)
	}
	if got := Binomial(10, 10); got != 1 {
		t.Errorf("Binomial(10, 10) = %v, want 1", got)
	}
	if got := Binomial(0, 0); got != 1 {
		t.Errorf("Binomial(0, 0) = %v, want 1", got)
	}
}

func TestHypergeomAtLeastBounds(t *testing.T) {
	prev := 1.0
	for k := 0; k <= 7; k++ {
		p := HypergeomAtLeast(k, 45, 6, 6)
		if p < 0 || p > 1 {
			t.Fatalf("HypergeomAtLeast(%d, 45, 6, 6) = %v outside [0, 1]", k, p)
		}
		if p > prev {
			t.Fatalf("tail probability increased at k=%d: %v > %v", k, p, prev)
		}
		prev = p
	}

	if p := HypergeomAtLeast(0, 45, 6, 6); p != 1 {
		t.Errorf("k=0 must be certain, got %v", p)
	}
	if p := HypergeomAtLeast(-3, 45, 6, 6); p != 1 {
		t.Errorf("negative k must be certain, got %v", p)
	}
}

func TestHypergeomAtLeastExact(t *testing.T) {
	// Jackpot odds: all six in a six-number ticket.
	want := 1.0 / exactBinomial(45, 6)
	got := HypergeomAtLeast(6, 45, 6, 6)
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("HypergeomAtLeast(6, 45, 6, 6) = %v, want %v", got, want)
	}

	// At least one hit is the complement of drawing all six from the
	// 39 losing numbers.
	want = 1.0 - exactBinomial(39, 6)/exactBinomial(45, 6)
	got = HypergeomAtLeast(1, 45, 6, 6)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("HypergeomAtLeast(1, 45, 6, 6) = %v, want %v", got, want)
	}
}

func TestHypergeomAtLeastImpossible(t *testing.T) {
	// More hits than winning numbers exist.
	if p := HypergeomAtLeast(7, 45, 6, 10); p != 0 {
		t.Errorf("expected 0 for k above successes, got %v", p)
	}
	// More hits than the sample can hold.
	if p := HypergeomAtLeast(6, 45, 6, 5); p != 0 {
		t.Errorf("expected 0 for k above sample size, got %v", p)
	}
}
