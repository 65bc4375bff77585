package classifier

import (
	"github.com/nao1215/defensys/internal/model"
	"github.com/nao1215/defensys/internal/urlfeature"
)

// PhishingDetector scores URLs with a phishing Facade. When the facade is
// untrained and heuristic fallback is enabled, URLs are scored with
// urlfeature.HeuristicScore instead of failing.
type PhishingDetector struct {
	model     *Facade
	extractor *urlfeature.Extractor
	heuristic bool
}

// DetectorOption configures a PhishingDetector.
type DetectorOption func(*PhishingDetector)

// WithHeuristicFallback enables lexical scoring for untrained models.
func WithHeuristicFallback(enabled bool) DetectorOption {
	return func(d *PhishingDetector) {
		d.heuristic = enabled
	}
}

// WithExtractor sets the URL feature extractor.
func WithExtractor(e *urlfeature.Extractor) DetectorOption {
	return func(d *PhishingDetector) {
		if e != nil {
			d.extractor = e
		}
	}
}

// NewPhishingDetector wraps m.
func NewPhishingDetector(m *Facade, opts ...DetectorOption) *PhishingDetector {
	d := &PhishingDetector{model: m}
	for _, opt := range opts {
		opt(d)
	}
	if d.extractor == nil {
		d.extractor = urlfeature.NewExtractor()
	}
	return d
}

// Model returns the wrapped facade.
func (d *PhishingDetector) Model() *Facade {
	return d.model
}

// Predict scores every URL. The phishing probability is the confidence and
// a URL is phishing when it exceeds 0.5.
func (d *PhishingDetector) Predict(urls []string) ([]model.PhishingPrediction, error) {
	if !d.model.Trained() {
		if !d.heuristic {
			return nil, model.ErrNotTrained
		}
		out := make([]model.PhishingPrediction, len(urls))
		for i, u := range urls {
			score := urlfeature.HeuristicScore(u)
			out[i] = model.PhishingPrediction{
				URL:        u,
				IsPhishing: score > 0.5,
				Confidence: score,
				Source:     model.SourceHeuristic,
			}
		}
		return out, nil
	}

	proba, err := d.model.PredictProba(d.extractor.ExtractBatch(urls))
	if err != nil {
		return nil, err
	}
	out := make([]model.PhishingPrediction, len(urls))
	for i, p := range proba {
		phish := 0.0
		if len(p) > 1 {
			phish = p[1]
		}
		out[i] = model.PhishingPrediction{
			URL:        urls[i],
			IsPhishing: phish > 0.5,
			Confidence: phish,
			Source:     model.SourceModel,
		}
	}
	return out, nil
}
