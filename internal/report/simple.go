package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/defensys/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminals.
type SimpleWriter struct {
	baseWriter

	// verbose adds per-URL reputation details.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteVerdicts outputs verdicts in human-readable format.
func (w *SimpleWriter) WriteVerdicts(results []model.EnrichedPrediction) (int, error) {
	var sb strings.Builder
	summary := Summarize(results)

	writeBanner(&sb, "DEFENSYS URL CHECK")

	writeSection(&sb, "RISK SUMMARY")
	for _, level := range model.AllRiskLevels() {
		fmt.Fprintf(&sb, "  %-10s %d\n", titleCase(level.String())+":", summary.ByRisk[level])
	}
	fmt.Fprintf(&sb, "\n  %-10s %d URLs\n\n", "Total:", summary.Total)

	if len(results) > 0 {
		writeSection(&sb, "VERDICTS")
		for _, r := range sortByRisk(results) {
			fmt.Fprintf(&sb, "[%s] %s\n", riskIndicator(r.Risk()), r.URL)
			fmt.Fprintf(&sb, "    Final:      %s\n", verdictText(r.FinalVerdict))
			if w.verbose {
				fmt.Fprintf(&sb, "    Model:      %s\n", verdictText(r.ModelPrediction))
				fmt.Fprintf(&sb, "    Reputation: %s\n", reputationText(r.Reputation))
				if r.Reputation.Error != "" {
					fmt.Fprintf(&sb, "    Error:      %s\n", r.Reputation.Error)
				}
			}
		}
		sb.WriteString("\n")
	}

	writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteDetections outputs network predictions in human-readable format.
func (w *SimpleWriter) WriteDetections(detections []model.DetailedPrediction) (int, error) {
	var sb strings.Builder
	attacks, benign := detectionCounts(detections)

	writeBanner(&sb, "DEFENSYS NETWORK DETECTION")
	writeSection(&sb, "SUMMARY")
	fmt.Fprintf(&sb, "  Attack: %d\n  Benign: %d\n  Total:  %d flows\n\n", attacks, benign, len(detections))

	if w.verbose && len(detections) > 0 {
		writeSection(&sb, "FLOWS")
		for i, d := range detections {
			class := "benign"
			indicator := "-"
			if d.Positive {
				class = "attack"
				indicator = "!!"
			}
			fmt.Fprintf(&sb, "[%s] flow %d: %s (%s)\n", indicator, i, class, formatProbability(d.Confidence))
		}
		sb.WriteString("\n")
	}

	writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// WriteModel outputs a model summary in human-readable format.
func (w *SimpleWriter) WriteModel(info ModelInfo) (int, error) {
	var sb strings.Builder
	meta := info.Metadata

	writeBanner(&sb, strings.ToUpper(info.Name)+" MODEL")
	fmt.Fprintf(&sb, "Version:          %s\n", meta.Version)
	fmt.Fprintf(&sb, "Architecture:     %s\n", meta.Architecture)
	fmt.Fprintf(&sb, "Created:          %s\n", formatTime(meta.CreatedAt))
	fmt.Fprintf(&sb, "Updated:          %s\n", formatTime(meta.UpdatedAt))
	fmt.Fprintf(&sb, "Training Samples: %d\n\n", meta.TrainingSamples)

	writeSection(&sb, "TRAINING METRICS")
	fmt.Fprintf(&sb, "  Accuracy:  %s\n", formatProbability(meta.Accuracy))
	fmt.Fprintf(&sb, "  Precision: %s\n", formatProbability(meta.Precision))
	fmt.Fprintf(&sb, "  Recall:    %s\n", formatProbability(meta.Recall))
	fmt.Fprintf(&sb, "  F1:        %s\n\n", formatProbability(meta.F1Score))

	if len(info.Importance) > 0 {
		writeSection(&sb, "FEATURE IMPORTANCE")
		for i, f := range info.Importance {
			fmt.Fprintf(&sb, "  %2d. %-32s %.4f\n", i+1, f.Name, f.Score)
		}
		sb.WriteString("\n")
	}

	writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// riskIndicator returns a visual indicator for the risk level.
func riskIndicator(level model.RiskLevel) string {
	switch level {
	case model.RiskConfirmed:
		return "!!!"
	case model.RiskHigh:
		return "!!"
	case model.RiskMedium:
		return "!"
	case model.RiskLow:
		return "-"
	default:
		return " "
	}
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max((ruleWidth-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by defensys\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}
