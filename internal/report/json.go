package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/defensys/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// version is the defensys version recorded in every document.
	version string

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the producing defensys version.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// VerdictReport is the JSON document for a URL check.
type VerdictReport struct {
	Version string                     `json:"version,omitempty"`
	Summary map[string]int             `json:"summary"`
	Results []model.EnrichedPrediction `json:"results"`
}

// DetectionReport is the JSON document for network predictions.
type DetectionReport struct {
	Version    string                     `json:"version,omitempty"`
	Total      int                        `json:"total"`
	Attacks    int                        `json:"attacks"`
	Benign     int                        `json:"benign"`
	Detections []model.DetailedPrediction `json:"detections"`
}

// ModelReport is the JSON document for a model summary.
type ModelReport struct {
	Version string `json:"version,omitempty"`
	ModelInfo
}

// WriteVerdicts outputs verdicts with a per-risk summary.
func (w *JSONWriter) WriteVerdicts(results []model.EnrichedPrediction) (int, error) {
	if results == nil {
		results = []model.EnrichedPrediction{}
	}
	return w.writeJSON(VerdictReport{
		Version: w.version,
		Summary: Summarize(results).Counts(),
		Results: results,
	})
}

// WriteDetections outputs network predictions with counts.
func (w *JSONWriter) WriteDetections(detections []model.DetailedPrediction) (int, error) {
	if detections == nil {
		detections = []model.DetailedPrediction{}
	}
	attacks, benign := detectionCounts(detections)
	return w.writeJSON(DetectionReport{
		Version:    w.version,
		Total:      len(detections),
		Attacks:    attacks,
		Benign:     benign,
		Detections: detections,
	})
}

// WriteModel outputs the model summary.
func (w *JSONWriter) WriteModel(info ModelInfo) (int, error) {
	return w.writeJSON(ModelReport{Version: w.version, ModelInfo: info})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}
