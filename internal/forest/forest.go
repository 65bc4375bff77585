package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ClassWeightBalanced weights classes inversely to their frequency.
const ClassWeightBalanced = "balanced"

// Params are the hyperparameters of a RandomForest.
type Params struct {
	NEstimators     int    `json:"n_estimators" yaml:"n_estimators"`
	MaxDepth        int    `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf" yaml:"min_samples_leaf"`
	ClassWeight     string `json:"class_weight" yaml:"class_weight"`

	// MaxFeatures is the number of features examined per split; 0 means
	// floor(sqrt(n_features)).
	MaxFeatures int `json:"max_features" yaml:"max_features"`

	Seed int64 `json:"random_state" yaml:"seed"`

	// Jobs bounds the number of trees grown concurrently; 0 means GOMAXPROCS.
	Jobs int `json:"-" yaml:"-"`
}

// DefaultParams returns a 100-tree forest with unlimited depth.
func DefaultParams() Params {
	return Params{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

// Map returns the hyperparameters as a generic map for metadata records.
// An unlimited depth is reported as nil.
func (p Params) Map() map[string]any {
	var depth any
	if p.MaxDepth > 0 {
		depth = p.MaxDepth
	}
	var weight any
	if p.ClassWeight != "" {
		weight = p.ClassWeight
	}
	return map[string]any{
		"n_estimators":      p.NEstimators,
		"max_depth":         depth,
		"min_samples_split": p.MinSamplesSplit,
		"min_samples_leaf":  p.MinSamplesLeaf,
		"class_weight":      weight,
		"random_state":      p.Seed,
	}
}

// String renders the parameters compactly for logs.
func (p Params) String() string {
	return fmt.Sprintf("n_estimators=%d max_depth=%d min_samples_split=%d min_samples_leaf=%d class_weight=%q",
		p.NEstimators, p.MaxDepth, p.MinSamplesSplit, p.MinSamplesLeaf, p.ClassWeight)
}

// normalized fills zero values with usable minimums.
func (p Params) normalized() Params {
	if p.NEstimators <= 0 {
		p.NEstimators = 1
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	if p.Jobs <= 0 {
		p.Jobs = runtime.GOMAXPROCS(0)
	}
	return p
}

// RandomForest is a bagged ensemble of CART trees whose class probabilities
// are averaged. Fields are exported for gob serialization.
type RandomForest struct {
	Params    Params
	Trees     []*Tree
	NFeatures int
	NClasses  int
}

// New returns an unfitted forest with the given parameters.
func New(params Params) *RandomForest {
	return &RandomForest{Params: params}
}

// Fitted reports whether Fit has completed successfully.
func (f *RandomForest) Fitted() bool {
	return len(f.Trees) > 0
}

// Fit grows the forest on X and integer class labels y.
func (f *RandomForest) Fit(ctx context.Context, X [][]float64, y []int) error {
	nFeatures, err := width(X)
	if err != nil {
		return err
	}
	nClasses, err := checkLabels(X, y)
	if err != nil {
		return err
	}

	params := f.Params.normalized()
	weights := sampleWeights(y, nClasses, params.ClassWeight)

	maxFeatures := params.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(nFeatures))))
	}
	treeParams := TreeParams{
		MaxDepth:        params.MaxDepth,
		MinSamplesSplit: params.MinSamplesSplit,
		MinSamplesLeaf:  params.MinSamplesLeaf,
		MaxFeatures:     maxFeatures,
	}

	trees := make([]*Tree, params.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(params.Jobs)

	for i := range params.NEstimators {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(uint64(params.Seed), uint64(i))) //nolint:gosec // deterministic sampling, not crypto
			idx := make([]int, len(X))
			for j := range idx {
				idx[j] = rng.IntN(len(X))
			}
			trees[i] = growTree(X, y, weights, nClasses, treeParams, rng, idx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to grow forest: %w", err)
	}

	f.Trees = trees
	f.NFeatures = nFeatures
	f.NClasses = nClasses
	return nil
}

// PredictProba returns per-row class probabilities averaged over all trees.
func (f *RandomForest) PredictProba(X [][]float64) ([][]float64, error) {
	if !f.Fitted() {
		return nil, ErrNotFitted
	}
	w, err := width(X)
	if err != nil {
		return nil, err
	}
	if w != f.NFeatures {
		return nil, fmt.Errorf("%w: got %d features, forest was fitted on %d", ErrShapeMismatch, w, f.NFeatures)
	}

	out := make([][]float64, len(X))
	scale := 1 / float64(len(f.Trees))
	for i, row := range X {
		proba := make([]float64, f.NClasses)
		for _, t := range f.Trees {
			for c, p := range t.Proba(row) {
				proba[c] += p * scale
			}
		}
		out[i] = proba
	}
	return out, nil
}

// Predict returns the most probable class of each row.
func (f *RandomForest) Predict(X [][]float64) ([]int, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = argmax(p)
	}
	return out, nil
}

// FeatureImportances returns the mean impurity-based importance of each
// feature, normalized to sum to 1.
func (f *RandomForest) FeatureImportances() ([]float64, error) {
	if !f.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]float64, f.NFeatures)
	for _, t := range f.Trees {
		for i, v := range t.Importances {
			out[i] += v
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out, nil
}

// sampleWeights returns a per-sample weight derived from the class weight
// mode. "balanced" uses n_samples / (n_classes * count(class)).
func sampleWeights(y []int, nClasses int, mode string) []float64 {
	weights := make([]float64, len(y))
	if mode != ClassWeightBalanced {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}

	counts := make([]int, nClasses)
	present := 0
	for _, label := range y {
		if counts[label] == 0 {
			present++
		}
		counts[label]++
	}
	for i, label := range y {
		weights[i] = float64(len(y)) / (float64(present) * float64(counts[label]))
	}
	return weights
}
