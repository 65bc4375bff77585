package netflow

import (
	"sync"

	"github.com/nao1215/defensys/internal/model"
)

// IPPairCounter counts observations of ordered (src, dst) address pairs.
// It is safe for concurrent use.
type IPPairCounter struct {
	mu     sync.Mutex
	counts map[model.IPPair]int
}

// NewIPPairCounter returns an empty counter.
func NewIPPairCounter() *IPPairCounter {
	return &IPPairCounter{counts: make(map[model.IPPair]int)}
}

// Increment adds one observation of pair and returns the new count.
func (c *IPPairCounter) Increment(pair model.IPPair) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[pair]++
	return c.counts[pair]
}

// Count returns the number of observations of pair.
func (c *IPPairCounter) Count(pair model.IPPair) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[pair]
}

// Observe increments every pair in pairs, then returns the resulting count
// of each pair in the same order. The whole batch is applied under one lock
// so concurrent batches cannot interleave between the two phases.
func (c *IPPairCounter) Observe(pairs []model.IPPair) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range pairs {
		c.counts[p]++
	}
	out := make([]int, len(pairs))
	for i, p := range pairs {
		out[i] = c.counts[p]
	}
	return out
}

// Reset forgets every observation.
func (c *IPPairCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[model.IPPair]int)
}

// Len returns the number of distinct pairs observed.
func (c *IPPairCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counts)
}

// PairCount is one entry of a counter snapshot.
type PairCount struct {
	Pair  model.IPPair
	Count int
}

// Snapshot returns a copy of every pair and its count.
func (c *IPPairCounter) Snapshot() []PairCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PairCount, 0, len(c.counts))
	for p, n := range c.counts {
		out = append(out, PairCount{Pair: p, Count: n})
	}
	return out
}

// restore replaces the counter contents with snapshot.
func (c *IPPairCounter) restore(snapshot []PairCount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[model.IPPair]int, len(snapshot))
	for _, pc := range snapshot {
		c.counts[pc.Pair] = pc.Count
	}
}
