package reputation

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/nao1215/defensys/internal/model"
)

// Decision thresholds applied to the model's phishing probability.
const (
	defaultThreshold    = 0.5
	verifiedThreshold   = 0.8
	unverifiedThreshold = 0.6
	confirmedConfidence = 0.95
	verifiedDiscount    = 0.8
	unverifiedDiscount  = 0.9
)

// Checker looks up the reputation of one URL. *Client implements it.
type Checker interface {
	CheckURL(ctx context.Context, url string, useCache bool) model.ReputationRecord
}

// Fuse combines the model's phishing probability p with a reputation
// record. A URL listed as phishing is always phishing. A listed but clean
// URL raises the model threshold, more so when the listing is verified.
// Anything else leaves the model's verdict unchanged.
func Fuse(p float64, rec model.ReputationRecord) model.Verdict {
	switch {
	case rec.InDatabase && rec.Phishing:
		return model.Verdict{IsPhishing: true, Confidence: math.Max(confirmedConfidence, p)}
	case rec.InDatabase && rec.Verified:
		return model.Verdict{IsPhishing: p > verifiedThreshold, Confidence: p * verifiedDiscount}
	case rec.InDatabase:
		return model.Verdict{IsPhishing: p > unverifiedThreshold, Confidence: p * unverifiedDiscount}
	default:
		return model.Verdict{IsPhishing: p > defaultThreshold, Confidence: p}
	}
}

// Enricher attaches reputation data to model predictions.
type Enricher struct {
	checker  Checker
	useCache bool
	logger   *slog.Logger
	now      func() time.Time
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithoutCache makes every lookup contact the service.
func WithoutCache() EnricherOption {
	return func(e *Enricher) {
		e.useCache = false
	}
}

// WithClock sets the time source for CheckedAt.
func WithClock(now func() time.Time) EnricherOption {
	return func(e *Enricher) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEnricherLogger sets the logger.
func WithEnricherLogger(logger *slog.Logger) EnricherOption {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// NewEnricher returns an Enricher backed by checker with caching enabled.
func NewEnricher(checker Checker, opts ...EnricherOption) *Enricher {
	e := &Enricher{checker: checker, useCache: true, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Enrich looks up url and fuses the result with the phishing probability p.
// A failed lookup is recorded in the summary and the model verdict stands.
func (e *Enricher) Enrich(ctx context.Context, url string, p float64) model.EnrichedPrediction {
	rec := e.checker.CheckURL(ctx, url, e.useCache)
	final := Fuse(p, rec)

	if rec.InDatabase {
		e.logger.Debug("url listed by reputation service",
			"url", url, "phish", rec.Phishing, "verified", rec.Verified)
	}

	return model.EnrichedPrediction{
		URL: url,
		ModelPrediction: model.Verdict{
			IsPhishing: p > defaultThreshold,
			Confidence: p,
		},
		Reputation: model.ReputationSummary{
			Checked:    true,
			InDatabase: rec.InDatabase,
			IsPhishing: rec.Phishing,
			Verified:   rec.Verified,
			FromCache:  rec.FromCache,
			Error:      rec.Error,
		},
		FinalVerdict: final,
		CheckedAt:    e.now(),
	}
}
