package main

import (
	"context"
	"fmt"

	"github.com/nao1215/defensys/internal/config"
	"github.com/nao1215/defensys/internal/database"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the reputation lookup cache",
	}
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached reputation lookup",
		Long: `Clear removes cached PhishTank lookups from the configured backend.

Examples:
  # Clear the file cache
  defensys cache clear

  # Clear the SQLite cache
  defensys cache clear --cache-backend sqlite`,
		Args: cobra.NoArgs,
		RunE: runCacheClearCmd,
	}

	cmd.Flags().String("cache-backend", config.CacheBackendFile, "Lookup cache backend: file or sqlite")
	cmd.Flags().String("cache-dir", "", "Directory of the file lookup cache")
	cmd.Flags().String("db-dir", "", "Directory of the history database")

	return cmd
}

// runCacheClearCmd executes the cache clear command.
func runCacheClearCmd(cmd *cobra.Command, _ []string) error {
	logger := setupLogger(cmd)
	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("cache-backend") {
		cfg.File.Reputation.CacheBackend = getStringFlag(cmd, "cache-backend")
	}
	if dir := getStringFlag(cmd, "cache-dir"); dir != "" {
		cfg.CacheDir = dir
	}
	if dir := getStringFlag(cmd, "db-dir"); dir != "" {
		cfg.DBDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var store *database.Store
	if cfg.File.Reputation.CacheBackend == config.CacheBackendSQLite {
		store, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
	}

	client, err := newReputationClient(cfg, store, logger)
	if err != nil {
		return err
	}
	n, err := client.ClearCache(context.Background())
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached reputation lookups (%s backend)\n",
		n, cfg.File.Reputation.CacheBackend)
	return nil
}
