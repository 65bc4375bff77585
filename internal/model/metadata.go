package model

import "time"

// ModelMetadata describes a trained model. It is written as a JSON sidecar
// next to the serialized classifier and is purely descriptive.
type ModelMetadata struct {
	Version         string         `json:"version"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Accuracy        float64        `json:"accuracy"`
	Precision       float64        `json:"precision"`
	Recall          float64        `json:"recall"`
	F1Score         float64        `json:"f1_score"`
	Features        []string       `json:"features"`
	Architecture    string         `json:"architecture"`
	Hyperparameters map[string]any `json:"hyperparameters"`
	TrainingSamples int            `json:"training_samples,omitempty"`
}

// Metrics is a set of classification scores.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
}

// Metrics returns the scores recorded in the metadata.
func (m *ModelMetadata) Metrics() Metrics {
	return Metrics{
		Accuracy:  m.Accuracy,
		Precision: m.Precision,
		Recall:    m.Recall,
		F1Score:   m.F1Score,
	}
}

// SetMetrics records new scores and bumps UpdatedAt.
func (m *ModelMetadata) SetMetrics(metrics Metrics, now time.Time) {
	m.Accuracy = metrics.Accuracy
	m.Precision = metrics.Precision
	m.Recall = metrics.Recall
	m.F1Score = metrics.F1Score
	m.UpdatedAt = now
}
