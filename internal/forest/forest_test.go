package forest

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"math"
	"testing"
)

// separable returns a dataset where feature 0 alone decides the class and
// feature 1 is noise.
func separable(n int) ([][]float64, []int) {
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range n {
		label := i % 2
		X[i] = []float64{float64(label)*10 + float64(i%5)*0.1, float64((i * 7) % 11)}
		y[i] = label
	}
	return X, y
}

func TestRandomForestFit(t *testing.T) {
	t.Parallel()

	t.Run("learns a separable problem", func(t *testing.T) {
		t.Parallel()
		X, y := separable(60)
		f := New(Params{NEstimators: 20, Seed: 1})
		if err := f.Fit(context.Background(), X, y); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pred, err := f.Predict(X)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if acc := Accuracy(y, pred); acc != 1 {
			t.Errorf("expected perfect training accuracy, got %v", acc)
		}
	})

	t.Run("probabilities sum to one", func(t *testing.T) {
		t.Parallel()
		X, y := separable(40)
		f := New(Params{NEstimators: 10, Seed: 3})
		if err := f.Fit(context.Background(), X, y); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		proba, err := f.PredictProba([][]float64{{5, 5}, {0, 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, p := range proba {
			if math.Abs(p[0]+p[1]-1) > 1e-9 {
				t.Errorf("row %d: expected probabilities to sum to 1, got %v", i, p)
			}
		}
	})

	t.Run("same seed gives same forest regardless of parallelism", func(t *testing.T) {
		t.Parallel()
		X, y := separable(50)
		a := New(Params{NEstimators: 8, Seed: 7, Jobs: 1})
		b := New(Params{NEstimators: 8, Seed: 7, Jobs: 4})
		if err := a.Fit(context.Background(), X, y); err != nil {
			t.Fatal(err)
		}
		if err := b.Fit(context.Background(), X, y); err != nil {
			t.Fatal(err)
		}
		pa, _ := a.PredictProba(X)
		pb, _ := b.PredictProba(X)
		for i := range pa {
			if pa[i][1] != pb[i][1] {
				t.Fatalf("row %d: expected identical probabilities, got %v and %v", i, pa[i], pb[i])
			}
		}
	})

	t.Run("informative feature dominates importances", func(t *testing.T) {
		t.Parallel()
		X, y := separable(80)
		f := New(Params{NEstimators: 15, Seed: 5, MaxFeatures: 2})
		if err := f.Fit(context.Background(), X, y); err != nil {
			t.Fatal(err)
		}
		imp, err := f.FeatureImportances()
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(imp[0]+imp[1]-1) > 1e-9 {
			t.Errorf("expected importances to sum to 1, got %v", imp)
		}
		if imp[0] <= imp[1] {
			t.Errorf("expected feature 0 to dominate, got %v", imp)
		}
	})

	t.Run("max depth is respected", func(t *testing.T) {
		t.Parallel()
		X, y := separable(60)
		f := New(Params{NEstimators: 5, MaxDepth: 1, Seed: 2})
		if err := f.Fit(context.Background(), X, y); err != nil {
			t.Fatal(err)
		}
		for i, tree := range f.Trees {
			if d := tree.Depth(); d > 1 {
				t.Errorf("tree %d: expected depth <= 1, got %d", i, d)
			}
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		t.Parallel()
		f := New(DefaultParams())
		if err := f.Fit(context.Background(), nil, nil); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
		if err := f.Fit(context.Background(), [][]float64{{1}, {1, 2}}, []int{0, 1}); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch for ragged rows, got %v", err)
		}
		if err := f.Fit(context.Background(), [][]float64{{1}, {2}}, []int{0}); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch for label count, got %v", err)
		}
		if err := f.Fit(context.Background(), [][]float64{{1}, {2}}, []int{0, -1}); !errors.Is(err, ErrInvalidLabel) {
			t.Errorf("expected ErrInvalidLabel, got %v", err)
		}
	})

	t.Run("honours cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		X, y := separable(20)
		if err := New(Params{NEstimators: 4}).Fit(ctx, X, y); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRandomForestPredictErrors(t *testing.T) {
	t.Parallel()

	t.Run("unfitted", func(t *testing.T) {
		t.Parallel()
		if _, err := New(DefaultParams()).Predict([][]float64{{1}}); !errors.Is(err, ErrNotFitted) {
			t.Errorf("expected ErrNotFitted, got %v", err)
		}
	})

	t.Run("wrong width", func(t *testing.T) {
		t.Parallel()
		X, y := separable(20)
		f := New(Params{NEstimators: 2})
		if err := f.Fit(context.Background(), X, y); err != nil {
			t.Fatal(err)
		}
		if _, err := f.Predict([][]float64{{1, 2, 3}}); !errors.Is(err, ErrShapeMismatch) {
			t.Errorf("expected ErrShapeMismatch, got %v", err)
		}
	})
}

func TestRandomForestGobRoundTrip(t *testing.T) {
	t.Parallel()

	X, y := separable(40)
	f := New(Params{NEstimators: 6, Seed: 11})
	if err := f.Fit(context.Background(), X, y); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		t.Fatalf("encode: %v", err)
	}
	var restored RandomForest
	if err := gob.NewDecoder(&buf).Decode(&restored); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want, _ := f.PredictProba(X)
	got, err := restored.PredictProba(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if want[i][0] != got[i][0] || want[i][1] != got[i][1] {
			t.Fatalf("row %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSampleWeights(t *testing.T) {
	t.Parallel()

	y := []int{0, 0, 0, 1}
	w := sampleWeights(y, 2, ClassWeightBalanced)
	// 4 / (2*3) and 4 / (2*1)
	if math.Abs(w[0]-4.0/6.0) > 1e-9 || math.Abs(w[3]-2) > 1e-9 {
		t.Errorf("unexpected balanced weights: %v", w)
	}

	for i, v := range sampleWeights(y, 2, "") {
		if v != 1 {
			t.Errorf("sample %d: expected unit weight, got %v", i, v)
		}
	}
}

func TestParamsMap(t *testing.T) {
	t.Parallel()

	m := DefaultParams().Map()
	if m["max_depth"] != nil {
		t.Errorf("expected unlimited depth to be nil, got %v", m["max_depth"])
	}
	if m["n_estimators"] != 100 {
		t.Errorf("expected 100 estimators, got %v", m["n_estimators"])
	}
}
