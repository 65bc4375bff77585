package forest

import (
	"errors"
	"math"
	"testing"
)

func TestStandardScaler(t *testing.T) {
	t.Parallel()

	t.Run("standardizes to zero mean and unit variance", func(t *testing.T) {
		t.Parallel()
		X := [][]float64{{1, 10}, {2, 20}, {3, 30}, {4, 40}}
		s := NewStandardScaler()
		out, err := s.FitTransform(X)
		if err != nil {
			t.Fatal(err)
		}
		for j := range 2 {
			var sum, sq float64
			for _, row := range out {
				sum += row[j]
				sq += row[j] * row[j]
			}
			mean := sum / 4
			if math.Abs(mean) > 1e-9 {
				t.Errorf("column %d: expected zero mean, got %v", j, mean)
			}
			if v := sq/4 - mean*mean; math.Abs(v-1) > 1e-9 {
				t.Errorf("column %d: expected unit variance, got %v", j, v)
			}
		}
	})

	t.Run("constant column is centered only", func(t *testing.T) {
		t.Parallel()
		s := NewStandardScaler()
		out, err := s.FitTransform([][]float64{{5}, {5}, {5}})
		if err != nil {
			t.Fatal(err)
		}
		for _, row := range out {
			if row[0] != 0 {
				t.Errorf("expected 0, got %v", row[0])
			}
		}
	})

	t.Run("does not modify input", func(t *testing.T) {
		t.Parallel()
		X := [][]float64{{1}, {3}}
		s := NewStandardScaler()
		if _, err := s.FitTransform(X); err != nil {
			t.Fatal(err)
		}
		if X[0][0] != 1 || X[1][0] != 3 {
			t.Errorf("input was modified: %v", X)
		}
	})

	t.Run("transform before fit", func(t *testing.T) {
		t.Parallel()
		if _, err := NewStandardScaler().Transform([][]float64{{1}}); !errors.Is(err, ErrNotFitted) {
			t.Errorf("expected ErrNotFitted, got %v", err)
		}
	})

	t.Run("width mismatch", func(t *testing.T) {
		t.Parallel()
		s := NewStandardScaler()
		if err := s.Fit([][]float64{{1, 2}}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Transform([][]float64{{1}}); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})
}
