package model

// Prediction sources.
const (
	// SourceModel marks a prediction produced by a trained classifier.
	SourceModel = "model"

	// SourceHeuristic marks a prediction produced by the lexical heuristic
	// used when no trained phishing model is available.
	SourceHeuristic = "heuristic"
)

// DetailedPrediction is the per-row output of a classifier's
// PredictWithDetails. Positive is the attack (network) or phishing class.
type DetailedPrediction struct {
	// Positive is true when the predicted class is the positive class.
	Positive bool `json:"positive"`

	// Confidence is the probability of the predicted class.
	Confidence float64 `json:"confidence"`

	// PositiveProbability is the probability of the positive class.
	PositiveProbability float64 `json:"positive_probability"`

	// NegativeProbability is the probability of the benign class.
	NegativeProbability float64 `json:"negative_probability"`

	// Source identifies how the prediction was made.
	Source string `json:"prediction_source"`
}

// PhishingPrediction is the output of the phishing model for one URL.
type PhishingPrediction struct {
	URL        string  `json:"url,omitempty"`
	IsPhishing bool    `json:"is_phishing"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"prediction_source"`
}

// FeatureScore pairs a feature name with its importance.
type FeatureScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}
