package forest

import "fmt"

// width validates that X is a non-empty rectangular matrix and returns its
// column count.
func width(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyInput
	}
	w := len(X[0])
	for i, row := range X {
		if len(row) != w {
			return 0, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrShapeMismatch, i, len(row), w)
		}
	}
	return w, nil
}

// checkLabels validates y against X and returns the number of classes,
// which is at least 2.
func checkLabels(X [][]float64, y []int) (int, error) {
	if len(y) != len(X) {
		return 0, fmt.Errorf("%w: %d rows but %d labels", ErrShapeMismatch, len(X), len(y))
	}
	maxLabel := 1
	for _, label := range y {
		if label < 0 {
			return 0, ErrInvalidLabel
		}
		maxLabel = max(maxLabel, label)
	}
	return maxLabel + 1, nil
}

// subset returns the rows of X and y selected by idx.
func subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}

// argmax returns the index of the largest value, preferring the lowest
// index on ties.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
