package report

import (
	"io"
	"sort"

	"github.com/nao1215/defensys/internal/model"
)

// Writer renders results in one output format.
type Writer interface {
	// WriteVerdicts outputs enriched phishing verdicts.
	WriteVerdicts(results []model.EnrichedPrediction) (int, error)

	// WriteDetections outputs per-flow network model predictions.
	WriteDetections(detections []model.DetailedPrediction) (int, error)

	// WriteModel outputs a trained model summary.
	WriteModel(info ModelInfo) (int, error)
}

// ModelInfo is the content of a model summary.
type ModelInfo struct {
	// Name is the model kind, "network" or "phishing".
	Name string `json:"name"`

	// Metadata is the model's descriptive sidecar.
	Metadata model.ModelMetadata `json:"metadata"`

	// Importance lists the most important features, descending.
	Importance []model.FeatureScore `json:"feature_importance,omitempty"`
}

// Summary counts verdicts per risk level.
type Summary struct {
	Total  int                     `json:"total"`
	ByRisk map[model.RiskLevel]int `json:"-"`
}

// Summarize counts results per risk level.
func Summarize(results []model.EnrichedPrediction) Summary {
	s := Summary{Total: len(results), ByRisk: make(map[model.RiskLevel]int)}
	for _, r := range results {
		s.ByRisk[r.Risk()]++
	}
	return s
}

// Highest returns the most severe risk level present, or RiskNone.
func (s Summary) Highest() model.RiskLevel {
	for _, level := range model.AllRiskLevels() {
		if s.ByRisk[level] > 0 {
			return level
		}
	}
	return model.RiskNone
}

// Counts returns the counts keyed by level name, for serialization.
func (s Summary) Counts() map[string]int {
	out := make(map[string]int, len(model.AllRiskLevels()))
	for _, level := range model.AllRiskLevels() {
		out[level.String()] = s.ByRisk[level]
	}
	return out
}

// sortByRisk returns results ordered most severe first, then by final
// confidence descending. The input is not modified.
func sortByRisk(results []model.EnrichedPrediction) []model.EnrichedPrediction {
	out := make([]model.EnrichedPrediction, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Risk(), out[j].Risk()
		if ri != rj {
			return ri > rj
		}
		return out[i].FinalVerdict.Confidence > out[j].FinalVerdict.Confidence
	})
	return out
}

// MultiWriter writes to multiple Writers, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteVerdicts outputs verdicts to all configured Writers.
func (m *MultiWriter) WriteVerdicts(results []model.EnrichedPrediction) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteVerdicts(results) })
}

// WriteDetections outputs detections to all configured Writers.
func (m *MultiWriter) WriteDetections(detections []model.DetailedPrediction) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteDetections(detections) })
}

// WriteModel outputs the model summary to all configured Writers.
func (m *MultiWriter) WriteModel(info ModelInfo) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteModel(info) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// detectionCounts returns the number of positive and negative detections.
func detectionCounts(detections []model.DetailedPrediction) (positive, negative int) {
	for _, d := range detections {
		if d.Positive {
			positive++
		} else {
			negative++
		}
	}
	return positive, negative
}
