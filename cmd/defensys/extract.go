package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/defensys/internal/netflow"
	"github.com/nao1215/defensys/internal/urlfeature"
	"github.com/spf13/cobra"
)

// Feature output formats.
const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Write feature vectors for flows or URLs",
		Long: `Extract turns raw inputs into the feature vectors the models consume and
writes them as CSV (with a header row) or JSON.`,
	}

	cmd.AddCommand(newExtractNetworkCmd())
	cmd.AddCommand(newExtractURLCmd())
	return cmd
}

func newExtractNetworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network <input>",
		Short: "Extract network flow features",
		Long: `Extract the 52 network flow features from a CSV, JSON or PCAP file, or
from CSV or JSON on standard input when the input is "-".

Examples:
  defensys extract network flows.csv
  defensys extract network capture.pcap --format json -o features.json
  cat flows.json | defensys extract network - --stdin-format json`,
		Args: cobra.ExactArgs(1),
		RunE: runExtractNetworkCmd,
	}
	addExtractFlags(cmd)
	cmd.Flags().String("stdin-format", formatCSV, "Format of input read from stdin: csv or json")
	return cmd
}

func newExtractURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url <url|file>...",
		Short: "Extract phishing URL features",
		Long: `Extract the 15 lexical URL features from URL arguments or from a single
file of URLs (one per line, or CSV/JSON with a "url" field).

Examples:
  defensys extract url http://example.com https://paypa1.example/login
  defensys extract url urls.txt --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExtractURLCmd,
	}
	addExtractFlags(cmd)
	return cmd
}

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "F", formatCSV, "Output format: csv or json")
	cmd.Flags().StringP("output", "o", "", "Write features to the specified file")
}

// runExtractNetworkCmd executes the extract network command.
func runExtractNetworkCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)
	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	format, err := extractFormat(cmd)
	if err != nil {
		return err
	}

	in := netflow.FromFile(args[0])
	if args[0] == stdinArg {
		in = netflow.FromReader(cmd.InOrStdin(), getStringFlag(cmd, "stdin-format"))
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	extractor := netflow.NewExtractor(
		netflow.WithHeuristics(cfg.File.Heuristics),
		netflow.WithLogger(logger),
	)
	rows, err := extractor.Preprocess(ctx, in)
	if err != nil {
		return err
	}
	logger.Info("extracted network features", "rows", len(rows))

	return writeFeatures(cmd, format, netflow.Names(), nil, rows)
}

// runExtractURLCmd executes the extract url command.
func runExtractURLCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(cmd)
	format, err := extractFormat(cmd)
	if err != nil {
		return err
	}

	rows, urls, err := urlfeature.NewExtractor(urlfeature.WithLogger(logger)).Preprocess(urlInput(args))
	if err != nil {
		return err
	}
	logger.Info("extracted URL features", "rows", len(rows))

	return writeFeatures(cmd, format, urlfeature.Names(), urls, rows)
}

func extractFormat(cmd *cobra.Command) (string, error) {
	format := getStringFlag(cmd, "format")
	switch format {
	case formatCSV, formatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use csv or json)", format)
	}
}

// writeFeatures writes rows under the given column names. When keys is
// not nil, each row is prefixed with its url.
func writeFeatures(cmd *cobra.Command, format string, names, keys []string, rows [][]float64) (err error) {
	w, closeOutput, err := openOutput(cmd, getStringFlag(cmd, "output"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOutput(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	if format == formatJSON {
		return writeFeaturesJSON(w, names, keys, rows)
	}
	return writeFeaturesCSV(w, names, keys, rows)
}

func writeFeaturesCSV(w io.Writer, names, keys []string, rows [][]float64) error {
	cw := csv.NewWriter(w)

	header := names
	if keys != nil {
		header = append([]string{"url"}, names...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for i, row := range rows {
		offset := 0
		if keys != nil {
			record[0] = keys[i]
			offset = 1
		}
		for j, v := range row {
			record[offset+j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeFeaturesJSON(w io.Writer, names, keys []string, rows [][]float64) error {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		obj := make(map[string]any, len(names)+1)
		if keys != nil {
			obj["url"] = keys[i]
		}
		for j, v := range row {
			obj[names[j]] = v
		}
		out[i] = obj
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}
	return nil
}
