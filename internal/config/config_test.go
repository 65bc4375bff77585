package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default concurrency is 10", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 10 {
			t.Errorf("expected Concurrency to be 10, got %d", cfg.Concurrency)
		}
	})

	t.Run("verdicts are saved by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
	})

	t.Run("directories live under XDG", func(t *testing.T) {
		t.Parallel()
		if cfg.ModelDir != filepath.Join(XDGDataDir(), "models") {
			t.Errorf("ModelDir = %s", cfg.ModelDir)
		}
		if cfg.CacheDir != filepath.Join(XDGCacheDir(), "phishtank") {
			t.Errorf("CacheDir = %s", cfg.CacheDir)
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("DBDir = %s", cfg.DBDir)
		}
	})

	t.Run("reputation defaults", func(t *testing.T) {
		t.Parallel()
		rep := cfg.File.Reputation
		if !rep.Enabled || rep.Timeout != 10*time.Second || rep.CacheTTL != time.Hour || rep.CacheBackend != CacheBackendFile {
			t.Errorf("Reputation = %+v", rep)
		}
	})

	t.Run("classifier defaults", func(t *testing.T) {
		t.Parallel()
		c := cfg.File.Classifier
		if c.Network.NEstimators != 200 || c.Phishing.NEstimators != 500 {
			t.Errorf("trees = %d/%d, want 200/500", c.Network.NEstimators, c.Phishing.NEstimators)
		}
		if c.CVFolds != 5 || !c.HeuristicFallback || c.GridSearch {
			t.Errorf("Classifier = %+v", c)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := NewConfig().Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"cache":  XDGCacheDir(),
	} {
		if filepath.Base(dir) != AppName {
			t.Errorf("%s dir %s does not end in %s", name, dir, AppName)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "zero concurrency", modify: func(c *Config) { c.Concurrency = 0 }, want: ErrInvalidConcurrency},
		{name: "both formats", modify: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, want: ErrConflictingReportFormats},
		{name: "zero timeout", modify: func(c *Config) { c.File.Reputation.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative ttl", modify: func(c *Config) { c.File.Reputation.CacheTTL = -time.Second }, want: ErrInvalidCacheTTL},
		{name: "unknown backend", modify: func(c *Config) { c.File.Reputation.CacheBackend = "redis" }, want: ErrInvalidCacheBackend},
		{name: "sqlite backend", modify: func(c *Config) { c.File.Reputation.CacheBackend = CacheBackendSQLite }, want: nil},
		{name: "bad proxy", modify: func(c *Config) { c.File.Reputation.Proxy = "localhost" }, want: ErrInvalidProxyAddress},
		{name: "good proxy", modify: func(c *Config) { c.File.Reputation.Proxy = "127.0.0.1:9050" }, want: nil},
		{name: "one fold", modify: func(c *Config) { c.File.Classifier.CVFolds = 1 }, want: ErrInvalidFolds},
		{name: "subnet bits", modify: func(c *Config) { c.File.Heuristics.SubnetBits = 33 }, want: ErrInvalidHeuristics},
		{name: "min duration", modify: func(c *Config) { c.File.Heuristics.MinDuration = 0 }, want: ErrInvalidHeuristics},
		{name: "nil file uses defaults", modify: func(c *Config) { c.File = nil }, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `
reputation:
  api_key: test-key
  timeout: 5s
  cache_backend: sqlite
classifier:
  grid_search: true
  network:
    n_estimators: 50
  grid:
    n_estimators: [10, 20]
heuristics:
  entropy_min_rows: 8
  port_scan:
    min_unique_ports: 20
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		if f.Reputation.APIKey != "test-key" || f.Reputation.Timeout != 5*time.Second {
			t.Errorf("Reputation = %+v", f.Reputation)
		}
		if f.Reputation.CacheTTL != time.Hour || !f.Reputation.Enabled {
			t.Errorf("reputation defaults lost: %+v", f.Reputation)
		}
		if !f.Classifier.GridSearch || f.Classifier.Network.NEstimators != 50 {
			t.Errorf("Classifier = %+v", f.Classifier)
		}
		if f.Classifier.Network.MaxDepth != 20 {
			t.Errorf("network max_depth = %d, want default 20", f.Classifier.Network.MaxDepth)
		}
		if len(f.Classifier.Grid.NEstimators) != 2 {
			t.Errorf("Grid = %+v", f.Classifier.Grid)
		}
		if f.Heuristics.EntropyMinRows != 8 || f.Heuristics.PortScan.MinUniquePorts != 20 {
			t.Errorf("Heuristics = %+v", f.Heuristics)
		}
		if f.Heuristics.SubnetBits != 24 || f.Heuristics.PortScan.LowBytesFraction != 0.7 {
			t.Errorf("heuristic defaults lost: %+v", f.Heuristics)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("reputation: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfigFile(path)
		if err == nil || !strings.Contains(err.Error(), "failed to parse") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestConfigLoad(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing path is an error", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ConfigFilePath = filepath.Join(t.TempDir(), "missing.yaml")
		if _, err := cfg.Load(); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Load() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("explicit path is loaded", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("classifier:\n  cv_folds: 3\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg := NewConfig()
		cfg.ConfigFilePath = path
		got, err := cfg.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != path || cfg.File.Classifier.CVFolds != 3 {
			t.Errorf("Load() = %s, folds = %d", got, cfg.File.Classifier.CVFolds)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "x.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(path); got != path {
		t.Errorf("FindConfigFile(existing) = %q", got)
	}
	if got := FindConfigFile(filepath.Join(dir, "nope")); got != "" {
		t.Errorf("FindConfigFile(missing) = %q", got)
	}
}
