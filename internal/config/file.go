package config

import (
	"time"

	"github.com/nao1215/defensys/internal/classifier"
	"github.com/nao1215/defensys/internal/forest"
	"github.com/nao1215/defensys/internal/netflow"
)

// Cache backends for reputation lookups.
const (
	// CacheBackendFile keeps one JSON file per URL.
	CacheBackendFile = "file"

	// CacheBackendSQLite keeps lookups in the defensys database.
	CacheBackendSQLite = "sqlite"
)

// ReputationFile is the reputation section of the configuration file.
type ReputationFile struct {
	// Enabled turns reputation enrichment on for the check command.
	Enabled bool `yaml:"enabled"`

	// APIKey is the PhishTank application key.
	APIKey string `yaml:"api_key,omitempty"`

	// Endpoint overrides the PhishTank check URL.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Proxy is an optional SOCKS5 proxy in host:port form.
	Proxy string `yaml:"proxy,omitempty"`

	// Timeout bounds each lookup.
	Timeout time.Duration `yaml:"timeout"`

	// CacheTTL is how long lookup results are reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// CacheBackend is "file" or "sqlite".
	CacheBackend string `yaml:"cache_backend"`
}

// ClassifierFile is the classifier section of the configuration file.
type ClassifierFile struct {
	// Network holds the network model's forest hyperparameters.
	Network forest.Params `yaml:"network"`

	// Phishing holds the phishing model's forest hyperparameters.
	Phishing forest.Params `yaml:"phishing"`

	// GridSearch enables hyperparameter search when training the network model.
	GridSearch bool `yaml:"grid_search"`

	// Grid overrides the search grid. Empty dimensions use the defaults.
	Grid forest.Grid `yaml:"grid,omitempty"`

	// CVFolds is the number of stratified cross-validation folds.
	CVFolds int `yaml:"cv_folds"`

	// HeuristicFallback scores URLs lexically when no phishing model exists.
	HeuristicFallback bool `yaml:"heuristic_fallback"`
}

// File represents the structure of the .defensys configuration file.
type File struct {
	Reputation ReputationFile     `yaml:"reputation"`
	Classifier ClassifierFile     `yaml:"classifier"`
	Heuristics netflow.Heuristics `yaml:"heuristics"`
}

// DefaultFile returns the values used for keys missing from the file.
func DefaultFile() *File {
	return &File{
		Reputation: ReputationFile{
			Enabled:      true,
			Timeout:      DefaultTimeout,
			CacheTTL:     DefaultCacheTTL,
			CacheBackend: CacheBackendFile,
		},
		Classifier: ClassifierFile{
			Network:           classifier.NetworkParams(),
			Phishing:          classifier.PhishingParams(),
			CVFolds:           DefaultCVFolds,
			HeuristicFallback: true,
		},
		Heuristics: netflow.DefaultHeuristics(),
	}
}
