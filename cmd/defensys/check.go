package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/defensys/internal/config"
	"github.com/nao1215/defensys/internal/database"
	"github.com/nao1215/defensys/internal/pipeline"
	"github.com/nao1215/defensys/internal/report"
	"github.com/nao1215/defensys/internal/reputation"
	"github.com/nao1215/defensys/internal/urlfeature"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [url]...",
		Short: "Check URLs for phishing",
		Long: `Check scores URLs with the phishing model and cross-checks them against the
PhishTank reputation service.

A URL listed as phishing by PhishTank is always reported as phishing. A
URL listed but not marked as phishing needs a higher model score to be
flagged. Lookup failures never fail the check; the model verdict stands
and the failure is shown in the report.

Without a trained phishing model, URLs are scored with lexical heuristics
(disable with heuristic_fallback: false in the configuration file).

Examples:
  # Check a single URL
  defensys check http://paypa1-login.example/verify

  # Check every URL in a file, 20 at a time
  defensys check --file urls.txt --concurrency 20

  # Model only, no reputation lookups
  defensys check --no-reputation http://example.com

  # Markdown report written to a file
  defensys check --markdown -o report.md http://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	cmd.Flags().StringP("file", "f", "", "Read URLs from a file (one per line, CSV or JSON)")
	cmd.Flags().String("model", "",
		"Phishing model directory (default: <XDG data>/defensys/models/phishing)")
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency, "Number of URLs checked at once")

	// Reputation flags
	cmd.Flags().Bool("no-reputation", false, "Skip PhishTank lookups")
	cmd.Flags().Bool("no-cache", false, "Ignore cached lookup results")
	cmd.Flags().String("api-key", "", "PhishTank application key (default: $PHISHTANK_API_KEY)")
	cmd.Flags().String("endpoint", "", "PhishTank check URL")
	cmd.Flags().StringP("proxy", "x", "", "SOCKS5 proxy for lookups (host:port)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for one lookup")
	cmd.Flags().String("cache-backend", config.CacheBackendFile, "Lookup cache backend: file or sqlite")
	cmd.Flags().String("cache-dir", "", "Directory of the file lookup cache")

	// History flags
	cmd.Flags().Bool("no-save", false, "Do not record verdicts in the history database")
	cmd.Flags().String("db-dir", "", "Directory of the history database")

	addReportFlags(cmd)

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)
	cfg, err := buildCheckConfig(cmd, logger)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	urls, err := checkTargets(cmd, args)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("no URLs provided (pass URLs as arguments or use --file)")
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	return runCheck(ctx, cmd, cfg, urls, logger)
}

// buildCheckConfig loads the configuration and applies the flags that were
// set explicitly.
func buildCheckConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return nil, err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	rep := &cfg.File.Reputation

	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if noRep, _ := flags.GetBool("no-reputation"); noRep { //nolint:errcheck // flag is defined by NewCheckCmd
		rep.Enabled = false
	}
	if noSave, _ := flags.GetBool("no-save"); noSave { //nolint:errcheck // flag is defined by NewCheckCmd
		cfg.SaveToDB = false
	}

	stringFlags := map[string]*string{
		"api-key":       &rep.APIKey,
		"endpoint":      &rep.Endpoint,
		"proxy":         &rep.Proxy,
		"cache-backend": &rep.CacheBackend,
		"cache-dir":     &cfg.CacheDir,
		"db-dir":        &cfg.DBDir,
	}
	for name, dst := range stringFlags {
		if flags.Changed(name) {
			if *dst, err = flags.GetString(name); err != nil {
				return nil, err
			}
		}
	}
	if flags.Changed("timeout") {
		if rep.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// checkTargets merges URL arguments with the --file list.
func checkTargets(cmd *cobra.Command, args []string) ([]string, error) {
	urls := append([]string(nil), args...)
	if path := getStringFlag(cmd, "file"); path != "" {
		fromFile, err := urlfeature.Decode(urlfeature.FromFile(path))
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}
	return urls, nil
}

// runCheck scores, enriches and records every URL, then writes the report.
func runCheck(ctx context.Context, cmd *cobra.Command, cfg *config.Config, urls []string, logger *slog.Logger) error {
	rep := cfg.File.Reputation

	detector, err := phishingDetector(cfg, modelDir(cfg, modelPhishing, getStringFlag(cmd, "model")), logger)
	if err != nil {
		return err
	}

	var store *database.Store
	if cfg.SaveToDB || (rep.Enabled && rep.CacheBackend == config.CacheBackendSQLite) {
		opts := database.DefaultOptions()
		opts.CacheTTL = rep.CacheTTL
		store, err = database.Open(cfg.DBDir, opts)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		logger.Info("database opened", "path", store.Path())
	}

	var enricher *reputation.Enricher
	if rep.Enabled {
		client, err := newReputationClient(cfg, store, logger)
		if err != nil {
			return err
		}
		var opts []reputation.EnricherOption
		if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache { //nolint:errcheck // flag is defined by NewCheckCmd
			opts = append(opts, reputation.WithoutCache())
		}
		opts = append(opts, reputation.WithEnricherLogger(logger))
		enricher = reputation.NewEnricher(client, opts...)
	}

	logger.Info("starting check",
		"urls", len(urls),
		"reputation", rep.Enabled,
		"saveToDB", cfg.SaveToDB,
		"concurrency", cfg.Concurrency,
	)

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			p := pipeline.New(pipeline.WithLogger(logger))
			p.AddStep(pipeline.NewPredictStep(detector))
			if enricher != nil {
				p.AddStep(pipeline.NewEnrichStep(enricher))
			}
			if cfg.SaveToDB {
				p.AddStep(pipeline.NewRecordStep(store, pipeline.WithRecordLogger(logger)))
			}
			return p
		},
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	checks, err := bp.ProcessBatch(ctx, urls)
	if err != nil {
		return fmt.Errorf("check interrupted: %w", err)
	}

	failed := 0
	for _, c := range checks {
		if c != nil && c.Failed() {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "Check error for %s: %v\n", c.URL, c.Err)
		}
	}
	if failed == len(checks) {
		return fmt.Errorf("all %d checks failed", failed)
	}

	results := pipeline.Results(checks)
	return writeReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.WriteVerdicts(results)
		return err
	})
}

// newReputationClient builds the PhishTank client with the configured
// cache backend and transport.
func newReputationClient(cfg *config.Config, store *database.Store, logger *slog.Logger) (*reputation.Client, error) {
	rep := cfg.File.Reputation

	cache, err := newReputationCache(cfg, store)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: rep.Timeout}
	if rep.Proxy != "" {
		httpClient, err = reputation.NewProxiedHTTPClient(rep.Proxy, rep.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to configure proxy: %w", err)
		}
		logger.Debug("reputation lookups use SOCKS5 proxy", "proxy", rep.Proxy)
	}

	opts := []reputation.ClientOption{
		reputation.WithEndpoint(rep.Endpoint),
		reputation.WithHTTPClient(httpClient),
		reputation.WithCache(cache),
		reputation.WithLogger(logger),
	}
	if rep.APIKey != "" {
		opts = append(opts, reputation.WithAPIKey(rep.APIKey))
	}
	return reputation.NewClient(opts...), nil
}

// newReputationCache returns the configured lookup cache. The SQLite
// backend reuses store.
func newReputationCache(cfg *config.Config, store *database.Store) (reputation.Cache, error) {
	rep := cfg.File.Reputation
	if rep.CacheBackend == config.CacheBackendSQLite {
		if store == nil {
			return nil, errors.New("sqlite cache backend requires the database")
		}
		return store, nil
	}

	cache, err := reputation.NewFileCache(cfg.CacheDir, reputation.WithTTL(rep.CacheTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to open reputation cache: %w", err)
	}
	return cache, nil
}
