// Package database provides SQLite-based storage for defensys.
//
// The Store keeps two tables in one file:
//   - reputation_cache: reputation lookup results keyed by the MD5 of the
//     URL, so the Store can serve as a reputation.Cache
//   - verdicts: every enriched phishing verdict produced by the check
//     command, for later review
//
// SQLite is accessed through modernc.org/sqlite, which needs no CGO.
package database
