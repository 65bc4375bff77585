package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for defensys.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defensys",
		Short: "Network attack and phishing URL detection",
		Long: `defensys turns network-flow summaries and URLs into feature vectors and
classifies them with random forest models.

Network flows are read from CSV, JSON or PCAP files and scored for attacks.
URLs are scored for phishing and, unless disabled, cross-checked against
the PhishTank reputation service. Verdicts are kept in a local SQLite
history.

Without a trained phishing model, URLs are scored with lexical heuristics.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .defensys in current or home directory)")

	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewTrainCmd())
	cmd.AddCommand(NewPredictCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewImportanceCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
