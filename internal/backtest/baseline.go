package backtest

// Binomial computes the binomial coefficient C(n, r) as a float using the
// iterative multiplicative form, avoiding factorial overflow for the small
// n this domain needs. Returns 0 when r < 0 or r > n.
func Binomial(n, r int) float64 {
	if r < 0 || r > n {
		return 0
	}
	if r > n-r {
		r = n - r
	}
	result := 1.0
	for i := 0; i < r; i++ {
		result = result * float64(n-i) / float64(i+1)
	}
	return result
}

// HypergeomAtLeast returns the probability that a uniformly random sample of
// sampleSize values from a universe holding successes winning values contains
// at least k of them. This is the random baseline a strategy's observed
// hit-rate@k is compared against for lift.
func HypergeomAtLeast(k, universeSize, successes, sampleSize int) float64 {
	if k <= 0 {
		return 1
	}

	total := Binomial(universeSize, sampleSize)
	if total == 0 {
		return 0
	}

	upper := successes
	if sampleSize < upper {
		upper = sampleSize
	}

	p := 0.0
	for j := k; j <= upper; j++ {
		p += Binomial(successes, j) * Binomial(universeSize-successes, sampleSize-j) / total
	}

	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
