package stats

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Entropy returns the Shannon entropy, in bits, of the empirical
// distribution of values. An empty sample has entropy 0.
func Entropy[T comparable](values []T) float64 {
	if len(values) == 0 {
		return 0
	}

	counts := make(map[T]int, len(values))
	order := make([]T, 0, len(values))
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	total := float64(len(values))
	probs := make([]float64, len(order))
	for i, v := range order {
		probs[i] = float64(counts[v]) / total
	}

	// stat.Entropy uses the natural logarithm.
	h := stat.Entropy(probs) / math.Ln2
	if h < 0 {
		// rounding
		return 0
	}
	return h
}

// SafeDiv divides num by max(den, floor).
func SafeDiv(num, den, floor float64) float64 {
	return num / math.Max(den, floor)
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// BoolToFloat maps true to 1 and false to 0.
func BoolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Symbol renders a float as a categorical symbol. Equal values always map to
// the same symbol, so it can be fed to Entropy.
func Symbol(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Mean returns the arithmetic mean of values, or 0 when empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
