package database

import (
	"context"
	"crypto/md5" //nolint:gosec // cache keys only
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/defensys/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "defensys.db"

// checkedAtFormat is fixed width so stored timestamps sort as text.
const checkedAtFormat = "2006-01-02T15:04:05.000000000Z"

// defaultCacheTTL matches the reputation client's file cache lifetime.
const defaultCacheTTL = time.Hour

// Store provides SQLite-based storage for reputation lookups and verdict
// history. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	dbPath string
	ttl    time.Duration
	now    func() time.Time
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// CacheTTL is how long cached reputation results stay valid.
	// Zero means one hour.
	CacheTTL time.Duration

	// Now is the time source. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		CacheTTL:          defaultCacheTTL,
	}
}

// Open opens or creates a Store in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
		ttl:    opts.CacheTTL,
		now:    opts.Now,
	}
	if s.ttl <= 0 {
		s.ttl = defaultCacheTTL
	}
	if s.now == nil {
		s.now = time.Now
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Reputation lookups keyed by md5(url)
	CREATE TABLE IF NOT EXISTS reputation_cache (
		url_hash TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		in_database INTEGER NOT NULL,
		phish INTEGER NOT NULL,
		verified INTEGER NOT NULL,
		verification_time TEXT,
		cache_time REAL NOT NULL
	);

	-- Final verdicts of the check command
	CREATE TABLE IF NOT EXISTS verdicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		is_phishing INTEGER NOT NULL,
		confidence REAL NOT NULL,
		risk TEXT NOT NULL,
		checked_at DATETIME NOT NULL,
		prediction_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_url ON verdicts(url);
	CREATE INDEX IF NOT EXISTS idx_verdicts_checked_at ON verdicts(checked_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// cacheKey returns the hex MD5 of url.
func cacheKey(url string) string {
	sum := md5.Sum([]byte(url)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// Get returns the cached reputation record for url. Entries older than the
// TTL are reported as missing.
func (s *Store) Get(ctx context.Context, url string) (model.ReputationRecord, bool, error) {
	query := `
	SELECT url, in_database, phish, verified, verification_time, cache_time
	FROM reputation_cache
	WHERE url_hash = ?
	`

	var (
		rec              model.ReputationRecord
		verificationTime sql.NullString
		cacheTime        float64
	)
	err := s.db.QueryRowContext(ctx, query, cacheKey(url)).Scan(
		&rec.URL,
		&rec.InDatabase,
		&rec.Phishing,
		&rec.Verified,
		&verificationTime,
		&cacheTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReputationRecord{}, false, nil
	}
	if err != nil {
		return model.ReputationRecord{}, false, fmt.Errorf("failed to get cached reputation: %w", err)
	}

	cached := time.Unix(0, int64(cacheTime*float64(time.Second)))
	if s.now().Sub(cached) > s.ttl {
		return model.ReputationRecord{}, false, nil
	}

	rec.VerificationTime = verificationTime.String
	rec.CacheTime = cached
	rec.FromCache = true
	return rec, true, nil
}

// Put stores rec, replacing any earlier entry for the same URL.
func (s *Store) Put(ctx context.Context, rec model.ReputationRecord) error {
	query := `
	INSERT INTO reputation_cache (url_hash, url, in_database, phish, verified, verification_time, cache_time)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url_hash) DO UPDATE SET
		url = excluded.url,
		in_database = excluded.in_database,
		phish = excluded.phish,
		verified = excluded.verified,
		verification_time = excluded.verification_time,
		cache_time = excluded.cache_time
	`

	cacheTime := float64(s.now().UnixNano()) / float64(time.Second)
	_, err := s.db.ExecContext(ctx, query,
		cacheKey(rec.URL),
		rec.URL,
		rec.InDatabase,
		rec.Phishing,
		rec.Verified,
		rec.VerificationTime,
		cacheTime,
	)
	if err != nil {
		return fmt.Errorf("failed to cache reputation: %w", err)
	}
	return nil
}

// Clear removes every cached reputation record and returns how many were
// removed.
func (s *Store) Clear(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reputation_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to clear reputation cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared entries: %w", err)
	}
	return int(n), nil
}

// VerdictRecord is a stored verdict.
type VerdictRecord struct {
	ID         int64
	URL        string
	IsPhishing bool
	Confidence float64
	Risk       string
	CheckedAt  time.Time
	Prediction model.EnrichedPrediction
}

// SaveVerdict stores an enriched prediction and returns its row ID.
func (s *Store) SaveVerdict(ctx context.Context, p model.EnrichedPrediction) (int64, error) {
	predictionJSON, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize prediction: %w", err)
	}

	checkedAt := p.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = s.now()
	}

	query := `
	INSERT INTO verdicts (url, is_phishing, confidence, risk, checked_at, prediction_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		p.URL,
		p.FinalVerdict.IsPhishing,
		p.FinalVerdict.Confidence,
		p.Risk().String(),
		checkedAt.UTC().Format(checkedAtFormat),
		string(predictionJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save verdict: %w", err)
	}

	return result.LastInsertId()
}

// VerdictHistory returns the stored verdicts for url, newest first. An
// empty url returns verdicts for every URL. limit <= 0 means no limit.
func (s *Store) VerdictHistory(ctx context.Context, url string, limit int) ([]VerdictRecord, error) {
	query := `
	SELECT id, url, is_phishing, confidence, risk, checked_at, prediction_json
	FROM verdicts
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if url != "" {
		query += " AND url = ?"
		args = append(args, url)
	}

	query += " ORDER BY checked_at DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var results []VerdictRecord
	for rows.Next() {
		var (
			rec            VerdictRecord
			checkedAt      string
			predictionJSON string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.URL,
			&rec.IsPhishing,
			&rec.Confidence,
			&rec.Risk,
			&checkedAt,
			&predictionJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}

		rec.CheckedAt = parseTimestamp(checkedAt)
		if err := json.Unmarshal([]byte(predictionJSON), &rec.Prediction); err != nil {
			continue // Skip malformed rows
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// RiskSummary counts stored verdicts by risk level name.
func (s *Store) RiskSummary(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT risk, COUNT(*) FROM verdicts GROUP BY risk")
	if err != nil {
		return nil, fmt.Errorf("failed to summarize verdicts: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]int)
	for rows.Next() {
		var (
			risk  string
			count int
		)
		if err := rows.Scan(&risk, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summary[risk] = count
	}
	return summary, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
