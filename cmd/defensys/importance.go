package main

import (
	"fmt"

	"github.com/nao1215/defensys/internal/config"
	"github.com/nao1215/defensys/internal/report"
	"github.com/spf13/cobra"
)

// NewImportanceCmd creates the importance command.
func NewImportanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "importance <network|phishing>",
		Short: "Show a trained model's most important features",
		Long: `Importance prints a model's metadata and its features ranked by mean
impurity decrease across the forest.

Examples:
  # Top 10 features of the network model
  defensys importance network

  # Top 5 features of a phishing model as JSON
  defensys importance phishing --model ./models/phishing --top 5 --json`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: modelKinds,
		RunE:      runImportanceCmd,
	}

	cmd.Flags().String("model", "",
		"Model directory or legacy model file (default: <XDG data>/defensys/models/<kind>)")
	cmd.Flags().IntP("top", "n", config.DefaultTopFeatures, "Number of features to list (0 lists all)")
	addReportFlags(cmd)

	return cmd
}

// runImportanceCmd executes the importance command.
func runImportanceCmd(cmd *cobra.Command, args []string) error {
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

	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}
	if top < 0 {
		return fmt.Errorf("--top must not be negative, got %d", top)
	}

	kind := args[0]
	m, err := loadModel(kind, modelDir(cfg, kind, getStringFlag(cmd, "model")), logger)
	if err != nil {
		return err
	}

	scores, err := m.FeatureImportance(top)
	if err != nil {
		return err
	}

	info := report.ModelInfo{Name: kind, Metadata: m.Metadata(), Importance: scores}
	return writeReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.WriteModel(info)
		return err
	})
}
