package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "defensys"

	// DefaultTimeout bounds one reputation lookup.
	DefaultTimeout = 10 * time.Second

	// DefaultCacheTTL is how long reputation results are reused.
	DefaultCacheTTL = time.Hour

	// DefaultConcurrency is the number of URLs checked at once.
	DefaultConcurrency = 10

	// DefaultCVFolds is the number of cross-validation folds for grid search.
	DefaultCVFolds = 5

	// DefaultTopFeatures is the number of features listed by the
	// importance command.
	DefaultTopFeatures = 10
)

// Config holds the settings of one defensys invocation. It is populated
// from defaults, then the configuration file, then command-line flags.
type Config struct {
	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .defensys is searched in the current and home directories.
	ConfigFilePath string

	// File is the loaded configuration file, or DefaultFile when none exists.
	File *File

	// ModelDir is where trained models are saved and loaded.
	// Defaults to <XDG data>/defensys/models.
	ModelDir string

	// CacheDir holds the file-backed reputation cache.
	// Defaults to <XDG cache>/defensys/phishtank.
	CacheDir string

	// DBDir holds the SQLite database with verdict history.
	// Defaults to <XDG data>/defensys.
	DBDir string

	// SaveToDB records check verdicts in the database.
	SaveToDB bool

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path. When empty, output goes to stdout.
	ReportFile string

	// Concurrency bounds the number of URLs checked at once.
	Concurrency int
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		File:        DefaultFile(),
		ModelDir:    filepath.Join(XDGDataDir(), "models"),
		CacheDir:    filepath.Join(XDGCacheDir(), "phishtank"),
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
		Concurrency: DefaultConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for defensys.
// On Linux: ~/.local/share/defensys
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for defensys.
// On Linux: ~/.config/defensys
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for defensys.
// On Linux: ~/.cache/defensys
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Load finds and loads the configuration file into c.File. A missing file
// is not an error unless ConfigFilePath was set explicitly. It returns the
// path loaded, or "" when defaults are used.
func (c *Config) Load() (string, error) {
	path := FindConfigFile(c.ConfigFilePath)
	if path == "" {
		if c.ConfigFilePath != "" {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, c.ConfigFilePath)
		}
		c.File = DefaultFile()
		return "", nil
	}

	f, err := LoadConfigFile(path)
	if err != nil {
		return "", err
	}
	c.File = f
	return path, nil
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.File == nil {
		c.File = DefaultFile()
	}
	rep := c.File.Reputation

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if rep.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if rep.CacheTTL <= 0 {
		return ErrInvalidCacheTTL
	}

	switch rep.CacheBackend {
	case CacheBackendFile, CacheBackendSQLite:
	default:
		return ErrInvalidCacheBackend
	}

	if rep.Proxy != "" && !validHostPort(rep.Proxy) {
		return ErrInvalidProxyAddress
	}

	if c.File.Classifier.CVFolds < 2 {
		return ErrInvalidFolds
	}

	return validateHeuristics(c)
}

// validateHeuristics rejects constants that would make extraction fail.
func validateHeuristics(c *Config) error {
	h := c.File.Heuristics
	switch {
	case h.MinDuration <= 0:
		return fmt.Errorf("%w: min_duration must be positive", ErrInvalidHeuristics)
	case h.EntropyMinRows < 0:
		return fmt.Errorf("%w: entropy_min_rows must be non-negative", ErrInvalidHeuristics)
	case h.SubnetBits < 0 || h.SubnetBits > 32:
		return fmt.Errorf("%w: subnet_bits must be within 0..32", ErrInvalidHeuristics)
	case h.WellKnownPortLimit < 0 || h.WellKnownPortLimit > 65536:
		return fmt.Errorf("%w: well_known_port_limit must be within 0..65536", ErrInvalidHeuristics)
	case h.AnomalyMax < 0:
		return fmt.Errorf("%w: anomaly_max must be non-negative", ErrInvalidHeuristics)
	}
	return nil
}

// validHostPort checks for a non-empty host and a port in 1..65535.
func validHostPort(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
