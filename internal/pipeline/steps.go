package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/defensys/internal/model"
)

// ErrNotPredicted is returned by steps that need a prediction when none
// has been made.
var ErrNotPredicted = errors.New("url has not been scored: add a predict step first")

// Predictor scores URLs. *classifier.PhishingDetector implements it.
type Predictor interface {
	Predict(urls []string) ([]model.PhishingPrediction, error)
}

// Enricher fuses a phishing probability with reputation data.
// *reputation.Enricher implements it.
type Enricher interface {
	Enrich(ctx context.Context, url string, p float64) model.EnrichedPrediction
}

// VerdictStore persists final verdicts. *database.Store implements it.
type VerdictStore interface {
	SaveVerdict(ctx context.Context, p model.EnrichedPrediction) (int64, error)
}

// PredictStep scores the URL with the phishing model. Until enriched, the
// final verdict is the model verdict.
type PredictStep struct {
	predictor Predictor
	now       func() time.Time
}

// PredictStepOption configures a PredictStep.
type PredictStepOption func(*PredictStep)

// WithPredictClock sets the time source for CheckedAt.
func WithPredictClock(now func() time.Time) PredictStepOption {
	return func(s *PredictStep) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPredictStep returns a step backed by predictor.
func NewPredictStep(predictor Predictor, opts ...PredictStepOption) *PredictStep {
	s := &PredictStep{predictor: predictor, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *PredictStep) Name() string {
	return "predict"
}

// Do executes the prediction step.
func (s *PredictStep) Do(_ context.Context, check *Check) error {
	preds, err := s.predictor.Predict([]string{check.URL})
	if err != nil {
		return fmt.Errorf("failed to score url: %w", err)
	}
	if len(preds) != 1 {
		return fmt.Errorf("predictor returned %d results for 1 url", len(preds))
	}

	check.Prediction = preds[0]
	check.Predicted = true

	verdict := model.Verdict{IsPhishing: preds[0].IsPhishing, Confidence: preds[0].Confidence}
	check.Result = model.EnrichedPrediction{
		URL:             check.URL,
		ModelPrediction: verdict,
		FinalVerdict:    verdict,
		CheckedAt:       s.now(),
	}
	return nil
}

// EnrichStep replaces the model verdict with one fused with reputation data.
type EnrichStep struct {
	enricher Enricher
}

// NewEnrichStep returns a step backed by enricher.
func NewEnrichStep(enricher Enricher) *EnrichStep {
	return &EnrichStep{enricher: enricher}
}

// Name returns the step name.
func (s *EnrichStep) Name() string {
	return "enrich"
}

// Do executes the enrichment step. Lookup failures are recorded in the
// result, not returned.
func (s *EnrichStep) Do(ctx context.Context, check *Check) error {
	if !check.Predicted {
		return ErrNotPredicted
	}
	check.Result = s.enricher.Enrich(ctx, check.URL, check.Prediction.Confidence)
	return nil
}

// RecordStep saves the final verdict. Storage failures are logged and do
// not fail the check.
type RecordStep struct {
	store  VerdictStore
	logger *slog.Logger
}

// RecordStepOption configures a RecordStep.
type RecordStepOption func(*RecordStep)

// WithRecordLogger sets a custom logger for the record step.
func WithRecordLogger(logger *slog.Logger) RecordStepOption {
	return func(s *RecordStep) {
		s.logger = logger
	}
}

// NewRecordStep returns a step writing to store.
func NewRecordStep(store VerdictStore, opts ...RecordStepOption) *RecordStep {
	s := &RecordStep{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do executes the record step.
func (s *RecordStep) Do(ctx context.Context, check *Check) error {
	if !check.Predicted {
		return ErrNotPredicted
	}
	if _, err := s.store.SaveVerdict(ctx, check.Result); err != nil {
		s.logger.Warn("failed to record verdict", "url", check.URL, "error", err)
	}
	return nil
}
