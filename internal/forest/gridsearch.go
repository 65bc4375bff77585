package forest

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Grid enumerates the hyperparameter values searched by GridSearch.
type Grid struct {
	NEstimators     []int    `yaml:"n_estimators"`
	MaxDepth        []int    `yaml:"max_depth"`
	MinSamplesSplit []int    `yaml:"min_samples_split"`
	MinSamplesLeaf  []int    `yaml:"min_samples_leaf"`
	ClassWeight     []string `yaml:"class_weight"`
}

// DefaultGrid returns the full search grid used for the network model.
// A max depth of 0 stands for unlimited depth.
func DefaultGrid() Grid {
	return Grid{
		NEstimators:     []int{100, 200, 500},
		MaxDepth:        []int{0, 10, 20, 30},
		MinSamplesSplit: []int{2, 5, 10},
		MinSamplesLeaf:  []int{1, 2, 4},
		ClassWeight:     []string{"", ClassWeightBalanced},
	}
}

// IsZero reports whether no dimension of the grid has values.
func (g Grid) IsZero() bool {
	return len(g.NEstimators) == 0 && len(g.MaxDepth) == 0 && len(g.MinSamplesSplit) == 0 &&
		len(g.MinSamplesLeaf) == 0 && len(g.ClassWeight) == 0
}

// Candidates expands the grid into concrete parameter sets, keeping the
// non-searched fields of base. Empty dimensions keep the base value.
func (g Grid) Candidates(base Params) []Params {
	orInts := func(values []int, fallback int) []int {
		if len(values) == 0 {
			return []int{fallback}
		}
		return values
	}
	weights := g.ClassWeight
	if len(weights) == 0 {
		weights = []string{base.ClassWeight}
	}

	var out []Params
	for _, n := range orInts(g.NEstimators, base.NEstimators) {
		for _, depth := range orInts(g.MaxDepth, base.MaxDepth) {
			for _, split := range orInts(g.MinSamplesSplit, base.MinSamplesSplit) {
				for _, leaf := range orInts(g.MinSamplesLeaf, base.MinSamplesLeaf) {
					for _, w := range weights {
						p := base
						p.NEstimators = n
						p.MaxDepth = depth
						p.MinSamplesSplit = split
						p.MinSamplesLeaf = leaf
						p.ClassWeight = w
						out = append(out, p)
					}
				}
			}
		}
	}
	return out
}

// Scorer scores predictions against true labels; higher is better.
type Scorer func(yTrue, yPred []int) float64

// CandidateScore is the mean cross-validation score of one candidate.
type CandidateScore struct {
	Params Params
	Score  float64
}

// SearchResult is the outcome of a grid search.
type SearchResult struct {
	Best      Params
	BestScore float64
	Scores    []CandidateScore
}

// GridSearch selects forest hyperparameters by k-fold cross-validation.
type GridSearch struct {
	grid        Grid
	folds       int
	scorer      Scorer
	concurrency int
	logger      *slog.Logger
}

// GridSearchOption configures a GridSearch.
type GridSearchOption func(*GridSearch)

// WithFolds sets the number of cross-validation folds. Default is 5.
func WithFolds(k int) GridSearchOption {
	return func(gs *GridSearch) {
		if k >= 2 {
			gs.folds = k
		}
	}
}

// WithScorer sets the selection metric. Default is BinaryF1.
func WithScorer(s Scorer) GridSearchOption {
	return func(gs *GridSearch) {
		if s != nil {
			gs.scorer = s
		}
	}
}

// WithSearchConcurrency bounds the number of fits run at once.
// Default is GOMAXPROCS.
func WithSearchConcurrency(n int) GridSearchOption {
	return func(gs *GridSearch) {
		if n > 0 {
			gs.concurrency = n
		}
	}
}

// WithSearchLogger sets the logger used for progress output.
func WithSearchLogger(logger *slog.Logger) GridSearchOption {
	return func(gs *GridSearch) {
		gs.logger = logger
	}
}

// NewGridSearch creates a search over grid.
func NewGridSearch(grid Grid, opts ...GridSearchOption) *GridSearch {
	gs := &GridSearch{
		grid:        grid,
		folds:       5,
		scorer:      BinaryF1,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(gs)
	}
	if gs.logger == nil {
		gs.logger = slog.Default()
	}
	return gs
}

// Run evaluates every candidate on every fold and returns the candidate
// with the highest mean score. Ties keep the earlier candidate in grid order.
//
// Each (candidate, fold) fit is an independent job scheduled on an errgroup;
// the forests themselves grow their trees sequentially so the total number
// of goroutines stays bounded by the search concurrency.
func (gs *GridSearch) Run(ctx context.Context, X [][]float64, y []int, base Params) (SearchResult, error) {
	if _, err := width(X); err != nil {
		return SearchResult{}, err
	}
	if _, err := checkLabels(X, y); err != nil {
		return SearchResult{}, err
	}

	candidates := gs.grid.Candidates(base)
	folds := StratifiedKFold(y, gs.folds)

	gs.logger.Info("starting grid search",
		"candidates", len(candidates),
		"folds", len(folds),
	)

	scores := make([][]float64, len(candidates))
	for i := range scores {
		scores[i] = make([]float64, len(folds))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(gs.concurrency)

	for ci, params := range candidates {
		for fi, test := range folds {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				train := complement(len(y), test)
				xTrain, yTrain := subset(X, y, train)
				xTest, yTest := subset(X, y, test)

				p := params
				p.Jobs = 1
				model := New(p)
				if err := model.Fit(ctx, xTrain, yTrain); err != nil {
					return fmt.Errorf("candidate %d fold %d: %w", ci, fi, err)
				}
				pred, err := model.Predict(xTest)
				if err != nil {
					return fmt.Errorf("candidate %d fold %d: %w", ci, fi, err)
				}
				scores[ci][fi] = gs.scorer(yTest, pred)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return SearchResult{}, fmt.Errorf("grid search failed: %w", err)
	}

	result := SearchResult{Scores: make([]CandidateScore, len(candidates))}
	bestIdx := -1
	for ci, params := range candidates {
		var sum float64
		for _, s := range scores[ci] {
			sum += s
		}
		mean := sum / float64(len(folds))
		result.Scores[ci] = CandidateScore{Params: params, Score: mean}
		if bestIdx < 0 || mean > result.BestScore {
			bestIdx = ci
			result.BestScore = mean
		}
	}
	result.Best = candidates[bestIdx]

	gs.logger.Info("grid search complete",
		"best", result.Best.String(),
		"score", result.BestScore,
	)
	return result, nil
}

// StratifiedKFold splits sample indices into k test folds that preserve the
// class proportions of y. Samples of each class are dealt to folds in order,
// so the split is deterministic. k is reduced to the number of samples when
// there are fewer samples than folds.
func StratifiedKFold(y []int, k int) [][]int {
	k = min(k, len(y))
	if k < 1 {
		return nil
	}
	folds := make([][]int, k)
	next := map[int]int{}
	offset := 0
	seen := map[int]bool{}
	for i, label := range y {
		if !seen[label] {
			// stagger each class so small classes do not all land in fold 0
			seen[label] = true
			next[label] = offset % k
			offset++
		}
		f := next[label]
		folds[f] = append(folds[f], i)
		next[label] = (f + 1) % k
	}

	out := folds[:0]
	for _, f := range folds {
		if len(f) > 0 {
			out = append(out, f)
		}
	}
	return out
}

// complement returns the indices in [0, n) not present in test.
func complement(n int, test []int) []int {
	inTest := make([]bool, n)
	for _, i := range test {
		inTest[i] = true
	}
	out := make([]int, 0, n-len(test))
	for i := range n {
		if !inTest[i] {
			out = append(out, i)
		}
	}
	return out
}
