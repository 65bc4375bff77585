package pipeline

import "github.com/nao1215/defensys/internal/model"

// Check is the state of one URL moving through a pipeline.
type Check struct {
	// URL is the URL being checked.
	URL string

	// Prediction is the phishing model's output. Valid once Predicted.
	Prediction model.PhishingPrediction

	// Predicted is true after a prediction step has run.
	Predicted bool

	// Result is the final, possibly enriched, verdict.
	Result model.EnrichedPrediction

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string

	// Err is the last step error, if any.
	Err error
}

// NewCheck returns a Check for url.
func NewCheck(url string) *Check {
	return &Check{
		URL:    url,
		Result: model.EnrichedPrediction{URL: url},
	}
}

// Failed reports whether any step returned an error.
func (c *Check) Failed() bool {
	return c.Err != nil
}

// Results returns the final verdicts of checks, skipping nil and failed ones.
func Results(checks []*Check) []model.EnrichedPrediction {
	out := make([]model.EnrichedPrediction, 0, len(checks))
	for _, c := range checks {
		if c == nil || c.Failed() {
			continue
		}
		out = append(out, c.Result)
	}
	return out
}
