package reputation

import (
	"context"
	"crypto/md5" //nolint:gosec // cache file names only, not a security boundary
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/defensys/internal/model"
)

// DefaultCacheTTL is how long a lookup result stays valid.
const DefaultCacheTTL = time.Hour

// Cache stores lookup results keyed by URL. Get reports false for missing
// and expired entries.
type Cache interface {
	Get(ctx context.Context, url string) (model.ReputationRecord, bool, error)
	Put(ctx context.Context, rec model.ReputationRecord) error
	Clear(ctx context.Context) (int, error)
}

// Key returns the hex MD5 digest of url used as the cache key.
func Key(url string) string {
	sum := md5.Sum([]byte(url)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// Expired reports whether an entry cached at cached is older than ttl at now.
func Expired(cached, now time.Time, ttl time.Duration) bool {
	return now.Sub(cached) > ttl
}

// FileCache keeps one JSON file per URL, named <md5(url)>.json, inside a
// directory. Each file carries a cache_time field in unix seconds.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// FileCacheOption configures a FileCache.
type FileCacheOption func(*FileCache)

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) FileCacheOption {
	return func(c *FileCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFileCacheClock sets the time source.
func WithFileCacheClock(now func() time.Time) FileCacheOption {
	return func(c *FileCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewFileCache creates dir if needed and returns a cache rooted there.
func NewFileCache(dir string, opts ...FileCacheOption) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	c := &FileCache{dir: dir, ttl: DefaultCacheTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.dir
}

// fileEntry is the on-disk form of a cached record.
type fileEntry struct {
	model.ReputationRecord
	CacheTime float64 `json:"cache_time"`
}

func (c *FileCache) path(url string) string {
	return filepath.Join(c.dir, Key(url)+".json")
}

// Get returns the cached record for url. Unreadable files count as misses.
func (c *FileCache) Get(_ context.Context, url string) (model.ReputationRecord, bool, error) {
	data, err := os.ReadFile(c.path(url))
	if errors.Is(err, fs.ErrNotExist) {
		return model.ReputationRecord{}, false, nil
	}
	if err != nil {
		return model.ReputationRecord{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return model.ReputationRecord{}, false, nil //nolint:nilerr // corrupt entries are misses
	}
	cached := time.Unix(0, int64(entry.CacheTime*float64(time.Second)))
	if Expired(cached, c.now(), c.ttl) {
		return model.ReputationRecord{}, false, nil
	}

	rec := entry.ReputationRecord
	rec.CacheTime = cached
	rec.FromCache = true
	return rec, true, nil
}

// Put writes rec, stamping it with the current time.
func (c *FileCache) Put(_ context.Context, rec model.ReputationRecord) error {
	now := c.now()
	rec.FromCache = false
	entry := fileEntry{
		ReputationRecord: rec,
		CacheTime:        float64(now.UnixNano()) / float64(time.Second),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := os.WriteFile(c.path(rec.URL), data, 0o600); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Clear removes every .json file in the cache directory and returns how
// many were removed.
func (c *FileCache) Clear(_ context.Context) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache directory: %w", err)
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return count, fmt.Errorf("failed to remove cache entry: %w", err)
		}
		count++
	}
	return count, nil
}
