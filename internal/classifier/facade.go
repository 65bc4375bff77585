package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/defensys/internal/forest"
	"github.com/nao1215/defensys/internal/model"
)

// Version is the model format version recorded in metadata.
const Version = "1.0.0"

// Architecture is the classifier family recorded in metadata.
const Architecture = "random_forest"

// Facade is a trainable, persistable binary classifier. Class 1 is the
// positive (attack or phishing) class. A Facade is safe for concurrent use;
// Train and Load replace the model atomically.
type Facade struct {
	name   string
	scaled bool
	params forest.Params

	logger    *slog.Logger
	now       func() time.Time
	cache     *predictionCache
	cacheSize int

	mu       sync.RWMutex
	forest   *forest.RandomForest
	scaler   *forest.StandardScaler
	metadata model.ModelMetadata
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger used for training progress.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

// WithParams replaces the variant's default forest parameters.
func WithParams(p forest.Params) Option {
	return func(f *Facade) {
		f.params = p
	}
}

// WithCacheSize bounds the prediction cache. Zero disables it.
func WithCacheSize(n int) Option {
	return func(f *Facade) {
		if n >= 0 {
			f.cacheSize = n
		}
	}
}

// WithClock sets the time source used for metadata timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Facade) {
		if now != nil {
			f.now = now
		}
	}
}

// NetworkParams are the forest parameters of the network model when no
// grid search is run.
func NetworkParams() forest.Params {
	return forest.Params{
		NEstimators:     200,
		MaxDepth:        20,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		ClassWeight:     forest.ClassWeightBalanced,
		Seed:            42,
	}
}

// PhishingParams are the forest parameters of the phishing model.
func PhishingParams() forest.Params {
	return forest.Params{
		NEstimators:     500,
		MaxDepth:        32,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		ClassWeight:     forest.ClassWeightBalanced,
		Seed:            42,
	}
}

// NewNetworkModel returns an untrained network intrusion classifier. Its
// features are standardized before reaching the forest.
func NewNetworkModel(opts ...Option) *Facade {
	return newFacade("network", true, NetworkParams(), opts)
}

// NewPhishingModel returns an untrained phishing URL classifier.
func NewPhishingModel(opts ...Option) *Facade {
	return newFacade("phishing", false, PhishingParams(), opts)
}

func newFacade(name string, scaled bool, params forest.Params, opts []Option) *Facade {
	f := &Facade{
		name:      name,
		scaled:    scaled,
		params:    params,
		now:       time.Now,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.cache = newPredictionCache(f.cacheSize)
	f.metadata = f.emptyMetadata()
	return f
}

func (f *Facade) emptyMetadata() model.ModelMetadata {
	return model.ModelMetadata{
		Version:      Version,
		Architecture: Architecture,
	}
}

// Name returns the variant name ("network" or "phishing").
func (f *Facade) Name() string {
	return f.name
}

// Scaled reports whether the variant standardizes its features.
func (f *Facade) Scaled() bool {
	return f.scaled
}

// Trained reports whether the facade holds a fitted forest.
func (f *Facade) Trained() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.forest != nil && f.forest.Fitted()
}

// Version returns the model version recorded in metadata.
func (f *Facade) Version() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.metadata.Version
}

// Metadata returns a copy of the model metadata.
func (f *Facade) Metadata() model.ModelMetadata {
	f.mu.RLock()
	defer f.mu.RUnlock()
	m := f.metadata
	m.Features = slices.Clone(f.metadata.Features)
	return m
}

// TrainOptions control Train.
type TrainOptions struct {
	// FeatureNames are recorded in metadata and used by FeatureImportance.
	FeatureNames []string

	// GridSearch selects the forest parameters by cross-validated search
	// instead of using the variant defaults.
	GridSearch bool

	// Grid is the search space. The zero Grid means forest.DefaultGrid().
	Grid forest.Grid

	// Folds is the number of cross-validation folds. Zero means 5.
	Folds int
}

// Train fits the scaler (network variant) and the forest on X and labels
// y, records training-set metrics and clears the prediction cache.
func (f *Facade) Train(ctx context.Context, X [][]float64, y []int, opts TrainOptions) error {
	xs := X
	var scaler *forest.StandardScaler
	if f.scaled {
		scaler = forest.NewStandardScaler()
		scaled, err := scaler.FitTransform(X)
		if err != nil {
			return fmt.Errorf("failed to fit scaler: %w", err)
		}
		xs = scaled
	}

	params := f.params
	if opts.GridSearch {
		grid := opts.Grid
		if grid.IsZero() {
			grid = forest.DefaultGrid()
		}
		folds := opts.Folds
		if folds == 0 {
			folds = 5
		}
		search := forest.NewGridSearch(grid,
			forest.WithFolds(folds),
			forest.WithScorer(forest.BinaryF1),
			forest.WithSearchLogger(f.logger),
		)
		result, err := search.Run(ctx, xs, y, f.params)
		if err != nil {
			return err
		}
		params = result.Best
		params.Jobs = f.params.Jobs
	}

	f.logger.Info("training forest", "model", f.name, "samples", len(X), "params", params.String())
	rf := forest.New(params)
	if err := rf.Fit(ctx, xs, y); err != nil {
		return fmt.Errorf("failed to train %s model: %w", f.name, err)
	}

	pred, err := rf.Predict(xs)
	if err != nil {
		return fmt.Errorf("failed to score %s model: %w", f.name, err)
	}
	report := forest.Evaluate(y, pred)

	now := f.now()
	meta := f.emptyMetadata()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.Accuracy = report.Accuracy
	meta.Precision = report.Precision
	meta.Recall = report.Recall
	meta.F1Score = report.F1
	meta.Features = slices.Clone(opts.FeatureNames)
	meta.Hyperparameters = params.Map()
	meta.TrainingSamples = len(X)

	f.mu.Lock()
	f.forest = rf
	f.scaler = scaler
	f.metadata = meta
	f.cache.clear()
	f.mu.Unlock()

	f.logger.Info("training complete", "model", f.name, "accuracy", report.Accuracy, "f1", report.F1)
	return nil
}

// PredictOption configures a prediction call.
type PredictOption func(*predictConfig)

type predictConfig struct {
	useCache bool
}

// NoCache bypasses the prediction cache for one call.
func NoCache() PredictOption {
	return func(c *predictConfig) {
		c.useCache = false
	}
}

func predictSettings(opts []PredictOption) predictConfig {
	c := predictConfig{useCache: true}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Predict returns the predicted class of every row.
func (f *Facade) Predict(X [][]float64, opts ...PredictOption) ([]int, error) {
	cfg := predictSettings(opts)
	key, cacheable := batchKey(X, outputClasses)
	if cfg.useCache && cacheable {
		if e, ok := f.cache.get(key); ok {
			return slices.Clone(e.classes), nil
		}
	}

	rf, xs, gen, err := f.prepare(X)
	if err != nil {
		return nil, err
	}
	classes, err := rf.Predict(xs)
	if err != nil {
		return nil, err
	}
	if cfg.useCache && cacheable {
		f.cache.put(key, gen, cacheEntry{classes: slices.Clone(classes)})
	}
	return classes, nil
}

// PredictProba returns the class probabilities of every row.
func (f *Facade) PredictProba(X [][]float64, opts ...PredictOption) ([][]float64, error) {
	cfg := predictSettings(opts)
	key, cacheable := batchKey(X, outputProba)
	if cfg.useCache && cacheable {
		if e, ok := f.cache.get(key); ok {
			return cloneMatrix(e.proba), nil
		}
	}

	rf, xs, gen, err := f.prepare(X)
	if err != nil {
		return nil, err
	}
	proba, err := rf.PredictProba(xs)
	if err != nil {
		return nil, err
	}
	if cfg.useCache && cacheable {
		f.cache.put(key, gen, cacheEntry{proba: cloneMatrix(proba)})
	}
	return proba, nil
}

// PredictWithDetails returns the predicted class, its probability and both
// class probabilities for every row.
func (f *Facade) PredictWithDetails(X [][]float64) ([]model.DetailedPrediction, error) {
	proba, err := f.PredictProba(X, NoCache())
	if err != nil {
		return nil, err
	}
	out := make([]model.DetailedPrediction, len(proba))
	for i, p := range proba {
		out[i] = detail(p)
	}
	return out, nil
}

// detail interprets one probability row. A forest fitted on a single
// class yields one-column rows.
func detail(p []float64) model.DetailedPrediction {
	pred := 0
	for c := range p {
		if p[c] > p[pred] {
			pred = c
		}
	}
	d := model.DetailedPrediction{
		Positive:   pred == 1,
		Confidence: p[pred],
		Source:     model.SourceModel,
	}
	if len(p) > 1 {
		d.PositiveProbability = p[1]
		d.NegativeProbability = p[0]
	} else {
		d.PositiveProbability = float64(pred)
		d.NegativeProbability = 1 - float64(pred)
	}
	return d
}

// prepare checks the trained state and scales X when the variant requires
// it. A loaded legacy model without a fitted scaler predicts on raw values.
// The returned generation identifies the model in the prediction cache.
func (f *Facade) prepare(X [][]float64) (*forest.RandomForest, [][]float64, uint64, error) {
	f.mu.RLock()
	rf, scaler := f.forest, f.scaler
	gen := f.cache.generation()
	f.mu.RUnlock()

	if rf == nil || !rf.Fitted() {
		return nil, nil, 0, model.ErrNotTrained
	}
	if !f.scaled || scaler == nil || !scaler.Fitted {
		return rf, X, gen, nil
	}
	xs, err := scaler.Transform(X)
	if err != nil {
		return nil, nil, 0, err
	}
	return rf, xs, gen, nil
}

// FeatureImportance returns the forest's feature importances sorted in
// descending order. topN <= 0 returns every feature. Features are named
// from metadata, or feature_<i> when the recorded names do not match.
func (f *Facade) FeatureImportance(topN int) ([]model.FeatureScore, error) {
	f.mu.RLock()
	rf := f.forest
	names := f.metadata.Features
	f.mu.RUnlock()

	if rf == nil || !rf.Fitted() {
		return nil, model.ErrNotTrained
	}
	imp, err := rf.FeatureImportances()
	if err != nil {
		return nil, err
	}

	scores := make([]model.FeatureScore, len(imp))
	for i, v := range imp {
		name := fmt.Sprintf("feature_%d", i)
		if len(names) == len(imp) {
			name = names[i]
		}
		scores[i] = model.FeatureScore{Name: name, Score: v}
	}
	slices.SortStableFunc(scores, func(a, b model.FeatureScore) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if topN > 0 && topN < len(scores) {
		scores = scores[:topN]
	}
	return scores, nil
}

// MetricsUpdate carries the scores to overwrite; nil fields are kept.
type MetricsUpdate struct {
	Accuracy  *float64
	Precision *float64
	Recall    *float64
	F1Score   *float64
}

// UpdateMetrics overwrites the given scores and bumps UpdatedAt.
func (f *Facade) UpdateMetrics(u MetricsUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.metadata.Metrics()
	if u.Accuracy != nil {
		m.Accuracy = *u.Accuracy
	}
	if u.Precision != nil {
		m.Precision = *u.Precision
	}
	if u.Recall != nil {
		m.Recall = *u.Recall
	}
	if u.F1Score != nil {
		m.F1Score = *u.F1Score
	}
	f.metadata.SetMetrics(m, f.now())
}

// ClearCache drops every cached prediction.
func (f *Facade) ClearCache() {
	f.cache.clear()
}

// CacheLen returns the number of cached predictions.
func (f *Facade) CacheLen() int {
	return f.cache.len()
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = slices.Clone(row)
	}
	return out
}
