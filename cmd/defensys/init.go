package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/defensys/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/defensys.yaml
var configTemplate embed.FS

// templatePath is the embedded configuration template.
const templatePath = "templates/defensys.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new defensys configuration file",
		Long: `Initialize creates a new .defensys configuration file in the current directory.

The generated file includes:
- Reputation lookup settings (API key, proxy, cache)
- Random forest hyperparameters for both models
- The network feature extraction heuristics

Examples:
  # Create .defensys in current directory
  defensys init

  # Create config file at a specific path
  defensys init -o myconfig.yaml

  # Force overwrite existing file
  defensys init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may hold an API key.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - PhishTank API key and SOCKS5 proxy")
	fmt.Fprintln(out, "  - Reputation cache backend and lifetime")
	fmt.Fprintln(out, "  - Model hyperparameters and grid search")

	return nil
}
