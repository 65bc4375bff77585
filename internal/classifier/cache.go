package classifier

import (
	"encoding/binary"
	"math"
	"sync"

	"golang.org/x/crypto/sha3"
)

// DefaultCacheSize is the number of prediction results kept per facade.
const DefaultCacheSize = 128

// outputKind distinguishes cached class labels from cached probabilities.
type outputKind byte

const (
	outputClasses outputKind = iota + 1
	outputProba
)

type cacheKey [32]byte

type cacheEntry struct {
	classes []int
	proba   [][]float64
}

// predictionCache is a bounded map from batch digest to prediction. When
// full the oldest entry is evicted. Every clear starts a new generation;
// results computed against an earlier generation are not stored.
type predictionCache struct {
	mu      sync.Mutex
	size    int
	gen     uint64
	entries map[cacheKey]cacheEntry
	order   []cacheKey
}

func newPredictionCache(size int) *predictionCache {
	return &predictionCache{size: size, entries: make(map[cacheKey]cacheEntry)}
}

// batchKey digests X and the requested output with SHA3-256 over the row
// count, the column count and every value in little-endian order. Ragged
// batches have no key.
func batchKey(X [][]float64, kind outputKind) (cacheKey, bool) {
	if len(X) == 0 {
		return cacheKey{}, false
	}
	cols := len(X[0])
	h := sha3.New256()
	var buf [8]byte
	h.Write([]byte{byte(kind)})
	binary.LittleEndian.PutUint64(buf[:], uint64(len(X)))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(cols))
	h.Write(buf[:])
	for _, row := range X {
		if len(row) != cols {
			return cacheKey{}, false
		}
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	var key cacheKey
	copy(key[:], h.Sum(nil))
	return key, true
}

func (c *predictionCache) get(key cacheKey) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *predictionCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// put stores e unless the cache was cleared after generation gen was read.
func (c *predictionCache) put(key cacheKey, gen uint64, e cacheEntry) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if _, ok := c.entries[key]; ok {
		c.entries[key] = e
		return
	}
	for len(c.order) >= c.size {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[key] = e
	c.order = append(c.order, key)
}

func (c *predictionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[cacheKey]cacheEntry)
	c.order = nil
}

func (c *predictionCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
