// Package log provides secure logging built on the standard slog package.
//
// The SecureHandler masks sensitive information before it reaches the
// output:
//   - reputation service keys (app_key, phishtank_api_key, x-api-key)
//   - HTTP and proxy auth (Authorization, Cookie, passwords)
//   - values that look like tokens or bare API keys
//   - credential query parameters and userinfo passwords inside logged
//     URLs and errors
//
// Even in verbose mode, sensitive values are masked so that logs can be
// shared.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("reputation lookup failed",
//	    "url", "https://checkurl.phishtank.com/checkurl/?app_key=abc", // app_key=***REDACTED***
//	    "phishtank_api_key", key, // ***REDACTED***
//	)
//	slog.SetDefault(logger)
package log
