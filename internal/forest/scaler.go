package forest

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes columns to zero mean and unit variance using
// statistics learned by Fit. Columns with zero variance are centered but not
// scaled.
//
// Fields are exported for gob serialization.
type StandardScaler struct {
	Mean   []float64
	Scale  []float64
	Fitted bool
}

// NewStandardScaler returns an unfitted scaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit learns per-column population mean and standard deviation.
func (s *StandardScaler) Fit(X [][]float64) error {
	w, err := width(X)
	if err != nil {
		return err
	}

	mean := make([]float64, w)
	scale := make([]float64, w)
	col := make([]float64, len(X))
	for j := range w {
		for i, row := range X {
			col[i] = row[j]
		}
		m, sd := stat.PopMeanStdDev(col, nil)
		mean[j] = m
		if sd == 0 {
			sd = 1
		}
		scale[j] = sd
	}

	s.Mean = mean
	s.Scale = scale
	s.Fitted = true
	return nil
}

// Transform returns a standardized copy of X.
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("%w: row %d has %d columns, scaler was fitted on %d", ErrShapeMismatch, i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform fits the scaler on X and returns the standardized copy.
func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
