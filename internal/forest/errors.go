package forest

import "errors"

var (
	// ErrEmptyInput is returned when fitting or predicting on zero rows.
	ErrEmptyInput = errors.New("forest: empty input")

	// ErrShapeMismatch is returned when rows have differing widths, when the
	// label count differs from the row count, or when predict input does
	// not match the fitted width.
	ErrShapeMismatch = errors.New("forest: shape mismatch")

	// ErrInvalidLabel is returned when a label is negative.
	ErrInvalidLabel = errors.New("forest: labels must be non-negative integers")

	// ErrNotFitted is returned when predicting with an unfitted estimator.
	ErrNotFitted = errors.New("forest: estimator is not fitted")
)
