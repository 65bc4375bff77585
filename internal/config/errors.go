package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidTimeout is returned when the reputation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the number of concurrent
	// checks is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCacheTTL is returned when the reputation cache lifetime is
	// not positive.
	ErrInvalidCacheTTL = errors.New("invalid cache ttl: must be positive")

	// ErrInvalidCacheBackend is returned for an unknown cache backend name.
	ErrInvalidCacheBackend = errors.New("invalid cache backend: must be \"file\" or \"sqlite\"")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy is not in
	// host:port form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	// ErrInvalidFolds is returned when fewer than two cross-validation
	// folds are requested.
	ErrInvalidFolds = errors.New("invalid cv folds: must be at least 2")

	// ErrInvalidHeuristics is returned when a heuristic constant is out of
	// range.
	ErrInvalidHeuristics = errors.New("invalid heuristics")
)
