package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/defensys/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// riskIcons decorates risk levels in tables.
var riskIcons = map[model.RiskLevel]string{
	model.RiskConfirmed: "🔴",
	model.RiskHigh:      "🟠",
	model.RiskMedium:    "🟡",
	model.RiskLow:       "🔵",
	model.RiskNone:      "⚪",
}

// WriteVerdicts outputs verdicts in Markdown format.
func (w *MarkdownWriter) WriteVerdicts(results []model.EnrichedPrediction) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := Summarize(results)

	md.H1("Defensys URL Check Report")
	md.PlainText("")

	w.writeRiskSummary(md, summary)
	w.writeVerdictTable(md, results)
	w.writeLookupErrors(md, results)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeRiskSummary writes the risk table, pie chart and alert.
func (w *MarkdownWriter) writeRiskSummary(md *markdown.Markdown, summary Summary) {
	md.H2("Risk Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(model.AllRiskLevels())+1)
	for _, level := range model.AllRiskLevels() {
		rows = append(rows, []string{riskIcons[level] + " " + titleCase(level.String()), strconv.Itoa(summary.ByRisk[level])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Risk", "URLs"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Total > 0 {
		w.writePieChart(md, summary)
	}
	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart for the risk distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("URL Risk Distribution"),
		piechart.WithShowData(true),
	)

	for _, level := range model.AllRiskLevels() {
		if n := summary.ByRisk[level]; n > 0 {
			chart.LabelAndIntValue(titleCase(level.String()), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the most severe verdict.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary Summary) {
	switch summary.Highest() {
	case model.RiskConfirmed:
		md.Cautionf(
			"%d URL(s) are listed as phishing by the reputation service. Do not visit them.",
			summary.ByRisk[model.RiskConfirmed],
		)
	case model.RiskHigh:
		md.Warningf(
			"%d URL(s) are very likely phishing.",
			summary.ByRisk[model.RiskHigh],
		)
	case model.RiskMedium:
		md.Importantf(
			"%d URL(s) look suspicious.",
			summary.ByRisk[model.RiskMedium],
		)
	case model.RiskLow:
		md.Note("No phishing detected, but some URLs carry a non-trivial score.")
	default:
		md.Tip("No phishing detected.")
	}
	md.PlainText("")
}

// writeVerdictTable writes one row per URL, most severe first.
func (w *MarkdownWriter) writeVerdictTable(md *markdown.Markdown, results []model.EnrichedPrediction) {
	md.H2("Verdicts")
	md.PlainText("")

	if len(results) == 0 {
		md.PlainText("No URLs checked.")
		md.PlainText("")
		return
	}

	sorted := sortByRisk(results)
	rows := make([][]string, len(sorted))
	for i, r := range sorted {
		risk := r.Risk()
		rows[i] = []string{
			"`" + truncateString(r.URL, 60) + "`",
			verdictText(r.ModelPrediction),
			reputationText(r.Reputation),
			verdictText(r.FinalVerdict),
			riskIcons[risk] + " " + risk.String(),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Model", "Reputation", "Final", "Risk"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeLookupErrors lists reputation lookups that degraded.
func (w *MarkdownWriter) writeLookupErrors(md *markdown.Markdown, results []model.EnrichedPrediction) {
	var failed []string
	for _, r := range results {
		if r.Reputation.Error != "" {
			failed = append(failed, r.URL+": "+r.Reputation.Error)
		}
	}
	if len(failed) == 0 {
		return
	}
	md.Details("Reputation lookups that failed", fmt.Sprintf("%d lookup(s) fell back to the model verdict.", len(failed)))
	md.BulletList(failed...)
	md.PlainText("")
}

// WriteDetections outputs network predictions in Markdown format.
func (w *MarkdownWriter) WriteDetections(detections []model.DetailedPrediction) (int, error) {
	md := markdown.NewMarkdown(w.output)
	attacks, benign := detectionCounts(detections)

	md.H1("Defensys Network Detection Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Class", "Flows"},
		Rows: [][]string{
			{"Attack", strconv.Itoa(attacks)},
			{"Benign", strconv.Itoa(benign)},
			{"**Total**", "**" + strconv.Itoa(len(detections)) + "**"},
		},
	})
	md.PlainText("")

	if attacks > 0 {
		md.Warningf("%d of %d flow(s) classified as attacks.", attacks, len(detections))
	} else {
		md.Tip("No attack flows detected.")
	}
	md.PlainText("")

	if len(detections) > 0 {
		rows := make([][]string, len(detections))
		for i, d := range detections {
			class := "benign"
			if d.Positive {
				class = "attack"
			}
			rows[i] = []string{
				strconv.Itoa(i),
				class,
				formatProbability(d.Confidence),
				formatProbability(d.PositiveProbability),
			}
		}
		md.H2("Flows")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"#", "Class", "Confidence", "Attack Probability"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// WriteModel outputs a model summary in Markdown format.
func (w *MarkdownWriter) WriteModel(info ModelInfo) (int, error) {
	md := markdown.NewMarkdown(w.output)
	meta := info.Metadata

	md.H1(titleCase(info.Name) + " Model")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Version", meta.Version},
			{"Architecture", meta.Architecture},
			{"Created", formatTime(meta.CreatedAt)},
			{"Updated", formatTime(meta.UpdatedAt)},
			{"Features", strconv.Itoa(len(meta.Features))},
			{"Training Samples", strconv.Itoa(meta.TrainingSamples)},
		},
	})
	md.PlainText("")

	md.H2("Training Metrics")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Score"},
		Rows: [][]string{
			{"Accuracy", formatProbability(meta.Accuracy)},
			{"Precision", formatProbability(meta.Precision)},
			{"Recall", formatProbability(meta.Recall)},
			{"F1", formatProbability(meta.F1Score)},
		},
	})
	md.PlainText("")

	if len(info.Importance) > 0 {
		rows := make([][]string, len(info.Importance))
		for i, f := range info.Importance {
			rows[i] = []string{strconv.Itoa(i + 1), "`" + f.Name + "`", strconv.FormatFloat(f.Score, 'f', 4, 64)}
		}
		md.H2("Feature Importance")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Rank", "Feature", "Importance"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [defensys](https://github.com/nao1215/defensys)*")
}
