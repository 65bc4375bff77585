package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/defensys/internal/classifier"
	"github.com/nao1215/defensys/internal/config"
	"github.com/nao1215/defensys/internal/model"
	"github.com/nao1215/defensys/internal/netflow"
	"github.com/nao1215/defensys/internal/report"
	"github.com/nao1215/defensys/internal/urlfeature"
	"github.com/spf13/cobra"
)

// stdinArg selects standard input as the prediction input.
const stdinArg = "-"

// NewPredictCmd creates the predict command.
func NewPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <network|phishing> <input>...",
		Short: "Classify flows or URLs with a trained model",
		Long: `Predict loads a trained model and prints one detection per input row.

For the network model the input is a CSV, JSON or PCAP file, or "-" to
read CSV or JSON from standard input (see --stdin-format). For the
phishing model the inputs are URLs or a single file of URLs. Reputation
lookups are not performed; use "defensys check" for enriched URL verdicts.

Examples:
  # Score a packet capture
  defensys predict network capture.pcap

  # Score flow summaries piped as JSON
  cat flows.json | defensys predict network - --stdin-format json

  # Score URLs with a model from a custom directory
  defensys predict phishing --model ./models/phishing http://example.com`,
		Args: cobra.MatchAll(cobra.MinimumNArgs(2), func(cmd *cobra.Command, args []string) error {
			return cobra.OnlyValidArgs(cmd, args[:1])
		}),
		ValidArgs: modelKinds,
		RunE:      runPredictCmd,
	}

	cmd.Flags().String("model", "",
		"Model directory or legacy model file (default: <XDG data>/defensys/models/<kind>)")
	cmd.Flags().String("stdin-format", "csv", "Format of network input read from stdin: csv or json")
	addReportFlags(cmd)

	return cmd
}

// runPredictCmd executes the predict command.
func runPredictCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)
	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	kind := args[0]
	dir := modelDir(cfg, kind, getStringFlag(cmd, "model"))
	m, err := loadModel(kind, dir, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var X [][]float64
	switch kind {
	case modelNetwork:
		X, err = networkFeatures(ctx, cmd, cfg, dir, args[1:], logger)
	default:
		X, err = urlFeatures(args[1:], logger)
	}
	if err != nil {
		return err
	}

	detections, err := m.PredictWithDetails(X)
	if err != nil {
		return err
	}
	logger.Info("prediction complete", "model", kind, "rows", len(detections))

	return writeReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.WriteDetections(detections)
		return err
	})
}

// networkFeatures decodes one flow input and extracts its features with the
// extractor state saved beside the model, when there is one.
func networkFeatures(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dir string, inputs []string, logger *slog.Logger) ([][]float64, error) {
	if len(inputs) != 1 {
		return nil, model.NewInputFormatError(
			fmt.Sprintf("network prediction takes exactly one input, got %d", len(inputs)), netflow.AcceptedFormats)
	}

	var in netflow.Input
	if inputs[0] == stdinArg {
		in = netflow.FromReader(cmd.InOrStdin(), getStringFlag(cmd, "stdin-format"))
	} else {
		in = netflow.FromFile(inputs[0])
	}

	extractor := netflow.NewExtractor(
		netflow.WithHeuristics(cfg.File.Heuristics),
		netflow.WithLogger(logger),
	)
	if err := loadExtractorState(extractor, dir); err != nil {
		return nil, err
	}
	return extractor.Preprocess(ctx, in)
}

// loadExtractorState restores <dir>/extractor.gob if present. Legacy
// single-file models have none and keep the configured heuristics.
func loadExtractorState(extractor *netflow.Extractor, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil //nolint:nilerr // the model itself was already loaded from dir
	}
	path := filepath.Join(dir, extractorFile)
	if err := extractor.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// urlFeatures resolves URL arguments, or a single file of URLs, into the
// phishing feature matrix.
func urlFeatures(inputs []string, logger *slog.Logger) ([][]float64, error) {
	X, _, err := urlfeature.NewExtractor(urlfeature.WithLogger(logger)).Preprocess(urlInput(inputs))
	return X, err
}

// urlInput treats a single argument naming an existing file as a URL list.
func urlInput(args []string) urlfeature.Input {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && !info.IsDir() {
			return urlfeature.FromFile(args[0])
		}
	}
	return urlfeature.FromURLs(args)
}

// phishingDetector loads the phishing model from dir. When no model exists
// and heuristic fallback is enabled, an untrained detector scoring URLs
// lexically is returned.
func phishingDetector(cfg *config.Config, dir string, logger *slog.Logger) (*classifier.PhishingDetector, error) {
	fallback := classifier.WithHeuristicFallback(cfg.File.Classifier.HeuristicFallback)
	extractor := classifier.WithExtractor(urlfeature.NewExtractor(urlfeature.WithLogger(logger)))

	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if !cfg.File.Classifier.HeuristicFallback {
			return nil, fmt.Errorf("no phishing model at %s (run 'defensys train phishing' first): %w", dir, model.ErrNotTrained)
		}
		logger.Warn("no trained phishing model, using heuristic scoring", "dir", dir)
		return classifier.NewPhishingDetector(classifier.NewPhishingModel(classifier.WithLogger(logger)), fallback, extractor), nil
	}

	m, err := loadModel(modelPhishing, dir, logger)
	if err != nil {
		return nil, err
	}
	return classifier.NewPhishingDetector(m, fallback, extractor), nil
}
