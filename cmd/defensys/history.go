package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/defensys/internal/config"
	"github.com/nao1215/defensys/internal/database"
	"github.com/nao1215/defensys/internal/model"
	"github.com/nao1215/defensys/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of verdicts listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show recorded check verdicts",
		Long: `History lists verdicts recorded by 'defensys check', newest first.

Without a URL, the most recent verdicts for every URL are listed. With
--summary, the number of stored verdicts per risk level is printed instead.

Examples:
  # Last 20 verdicts
  defensys history

  # Every verdict for one URL
  defensys history --limit 0 http://example.com

  # Verdict counts per risk level
  defensys history --summary`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of verdicts to list (0 lists all)")
	cmd.Flags().BoolP("summary", "s", false, "Print verdict counts per risk level")
	cmd.Flags().String("db-dir", "", "Directory of the history database")
	addReportFlags(cmd)

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)
	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if dir := getStringFlag(cmd, "db-dir"); dir != "" {
		cfg.DBDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	summary, err := cmd.Flags().GetBool("summary")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var url string
	if len(args) == 1 {
		url = args[0]
	}

	if _, err := os.Stat(filepath.Join(cfg.DBDir, database.FileName)); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "No verdict history found.")
		fmt.Fprintln(cmd.OutOrStdout(), "\nUse 'defensys check <url>' to check URLs and record verdicts.")
		return nil
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	store, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if summary {
		return printRiskSummary(ctx, cmd.OutOrStdout(), store)
	}
	return listVerdicts(ctx, cmd, cfg, store, url, limit)
}

// printRiskSummary prints the verdict count of every risk level.
func printRiskSummary(ctx context.Context, out io.Writer, store *database.Store) error {
	counts, err := store.RiskSummary(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(out, "Recorded verdicts: %d\n\n", total)
	for _, level := range model.AllRiskLevels() {
		fmt.Fprintf(out, "  %-10s %d\n", level.String(), counts[level.String()])
	}
	return nil
}

// listVerdicts prints stored verdicts as a table, or through the report
// writers when a report format is selected.
func listVerdicts(ctx context.Context, cmd *cobra.Command, cfg *config.Config, store *database.Store, url string, limit int) error {
	records, err := store.VerdictHistory(ctx, url, limit)
	if err != nil {
		return err
	}

	if cfg.JSONReport || cfg.MarkdownReport {
		predictions := make([]model.EnrichedPrediction, len(records))
		for i, r := range records {
			predictions[i] = r.Prediction
		}
		return writeReport(cmd, cfg, func(w report.Writer) error {
			_, err := w.WriteVerdicts(predictions)
			return err
		})
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		if url != "" {
			fmt.Fprintf(out, "No verdict history found for %s\n", url)
		} else {
			fmt.Fprintln(out, "No verdict history found.")
		}
		return nil
	}

	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %-10s  %s\n", "ID", "Checked", "Risk", "Confidence", "URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 76))
	for _, r := range records {
		fmt.Fprintf(out, "  %-6d  %-20s  %-10s  %9.1f%%  %s\n",
			r.ID,
			r.CheckedAt.Local().Format("2006-01-02 15:04:05"),
			r.Risk,
			r.Confidence*100,
			r.URL,
		)
	}
	return nil
}
