package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nao1215/defensys/internal/classifier"
	"github.com/nao1215/defensys/internal/config"
	"github.com/nao1215/defensys/internal/netflow"
	"github.com/nao1215/defensys/internal/urlfeature"
	"github.com/spf13/cobra"
)

// extractorFile holds the network extractor state next to the model, so
// predictions reuse the training heuristics and IP pair counts.
const extractorFile = "extractor.gob"

// NewTrainCmd creates the train command.
func NewTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <network|phishing>",
		Short: "Train a network attack or phishing URL model",
		Long: `Train fits a random forest on labelled data and saves it to a model directory.

Network training data is a CSV or JSON file of flow summaries with a label
column. Phishing training data is a CSV or JSON file with "url" and label
columns. Labels may be 0/1, true/false, or class names such as "attack",
"benign", "phishing" and "legitimate".

The model directory holds model.pkl, model_metadata.json and, for the
network model, scaler.pkl and the extractor state.

Examples:
  # Train the network model with default hyperparameters
  defensys train network --data flows.csv

  # Select hyperparameters by 5-fold grid search
  defensys train network --data flows.csv --grid-search

  # Train the phishing model into a custom directory
  defensys train phishing --data urls.csv --labels is_phishing --out ./models/phishing`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: modelKinds,
		RunE:      runTrainCmd,
	}

	cmd.Flags().StringP("data", "d", "", "Training data file (CSV or JSON)")
	cmd.Flags().StringP("labels", "l", defaultLabelColumn, "Name of the label column")
	cmd.Flags().StringP("out", "o", "",
		"Model output directory (default: <XDG data>/defensys/models/<kind>)")
	cmd.Flags().BoolP("grid-search", "g", false,
		"Select network model hyperparameters by cross-validated grid search")
	cmd.Flags().IntP("folds", "k", config.DefaultCVFolds, "Number of cross-validation folds")
	_ = cmd.MarkFlagRequired("data") //nolint:errcheck // flag is defined above

	return cmd
}

// trainSettings are the train command's flags.
type trainSettings struct {
	kind   string
	data   string
	labels string
	out    string
}

// runTrainCmd executes the train command.
func runTrainCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)
	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("grid-search") {
		if cfg.File.Classifier.GridSearch, err = flags.GetBool("grid-search"); err != nil {
			return err
		}
	}
	if flags.Changed("folds") {
		if cfg.File.Classifier.CVFolds, err = flags.GetInt("folds"); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	s := trainSettings{kind: args[0]}
	if s.data, err = flags.GetString("data"); err != nil {
		return err
	}
	if s.labels, err = flags.GetString("labels"); err != nil {
		return err
	}
	if s.out, err = flags.GetString("out"); err != nil {
		return err
	}
	s.out = modelDir(cfg, s.kind, s.out)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var m *classifier.Facade
	switch s.kind {
	case modelNetwork:
		m, err = trainNetwork(ctx, cfg, s, logger)
	default:
		m, err = trainPhishing(ctx, cfg, s, logger)
	}
	if err != nil {
		return err
	}

	meta := m.Metadata()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Trained %s model on %d samples\n", s.kind, meta.TrainingSamples)
	fmt.Fprintf(out, "  accuracy:  %.4f\n", meta.Accuracy)
	fmt.Fprintf(out, "  precision: %.4f\n", meta.Precision)
	fmt.Fprintf(out, "  recall:    %.4f\n", meta.Recall)
	fmt.Fprintf(out, "  f1:        %.4f\n", meta.F1Score)
	fmt.Fprintf(out, "Saved to %s\n", s.out)
	return nil
}

// trainNetwork fits the network model and saves it with its extractor.
func trainNetwork(ctx context.Context, cfg *config.Config, s trainSettings, logger *slog.Logger) (*classifier.Facade, error) {
	batch, err := netflow.Decode(ctx, netflow.FromFile(s.data), logger)
	if err != nil {
		return nil, err
	}
	y, err := readLabels(s.data, s.labels)
	if err != nil {
		return nil, err
	}
	if len(y) != len(batch) {
		return nil, fmt.Errorf("%w: %d labels for %d flow records", errLabelFormat, len(y), len(batch))
	}

	extractor := netflow.NewExtractor(
		netflow.WithHeuristics(cfg.File.Heuristics),
		netflow.WithLogger(logger),
	)
	X := extractor.Extract(batch)

	cc := cfg.File.Classifier
	m := classifier.NewNetworkModel(
		classifier.WithParams(cc.Network),
		classifier.WithLogger(logger),
	)
	err = m.Train(ctx, X, y, classifier.TrainOptions{
		FeatureNames: netflow.Names(),
		GridSearch:   cc.GridSearch,
		Grid:         cc.Grid,
		Folds:        cc.CVFolds,
	})
	if err != nil {
		return nil, err
	}

	dir, err := m.Save(s.out)
	if err != nil {
		return nil, err
	}
	if err := extractor.Save(filepath.Join(dir, extractorFile)); err != nil {
		return nil, err
	}
	return m, nil
}

// trainPhishing fits the phishing model on lexical URL features.
func trainPhishing(ctx context.Context, cfg *config.Config, s trainSettings, logger *slog.Logger) (*classifier.Facade, error) {
	urls, err := urlfeature.Decode(urlfeature.FromFile(s.data))
	if err != nil {
		return nil, err
	}
	y, err := readLabels(s.data, s.labels)
	if err != nil {
		return nil, err
	}
	if len(y) != len(urls) {
		return nil, fmt.Errorf("%w: %d labels for %d URLs", errLabelFormat, len(y), len(urls))
	}

	cc := cfg.File.Classifier
	if cc.GridSearch {
		logger.Warn("grid search applies to the network model only; using configured phishing parameters")
	}

	X := urlfeature.NewExtractor(urlfeature.WithLogger(logger)).ExtractBatch(urls)
	m := classifier.NewPhishingModel(
		classifier.WithParams(cc.Phishing),
		classifier.WithLogger(logger),
	)
	if err := m.Train(ctx, X, y, classifier.TrainOptions{FeatureNames: urlfeature.Names()}); err != nil {
		return nil, err
	}
	if _, err := m.Save(s.out); err != nil {
		return nil, err
	}
	return m, nil
}

// loadModel restores a saved model of the given kind from dir.
func loadModel(kind, dir string, logger *slog.Logger) (*classifier.Facade, error) {
	var m *classifier.Facade
	if kind == modelNetwork {
		m = classifier.NewNetworkModel(classifier.WithLogger(logger))
	} else {
		m = classifier.NewPhishingModel(classifier.WithLogger(logger))
	}
	if err := m.Load(dir); err != nil {
		return nil, err
	}
	return m, nil
}
