package netflow

import (
	"sync"
	"testing"

	"github.com/nao1215/defensys/internal/model"
)

func TestIPPairCounter(t *testing.T) {
	t.Parallel()

	a := model.IPPair{Src: "10.0.0.1", Dst: "10.0.0.2"}
	b := model.IPPair{Src: "10.0.0.2", Dst: "10.0.0.1"}

	t.Run("pairs are ordered", func(t *testing.T) {
		t.Parallel()

		c := NewIPPairCounter()
		c.Increment(a)
		c.Increment(a)
		if c.Count(a) != 2 || c.Count(b) != 0 {
			t.Errorf("expected a=2 b=0, got a=%d b=%d", c.Count(a), c.Count(b))
		}
	})

	t.Run("observe counts the batch first", func(t *testing.T) {
		t.Parallel()

		c := NewIPPairCounter()
		got := c.Observe([]model.IPPair{a, b, a})
		want := []int{2, 1, 2}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
			}
		}
	})

	t.Run("reset and restore", func(t *testing.T) {
		t.Parallel()

		c := NewIPPairCounter()
		c.Observe([]model.IPPair{a, a, b})
		snap := c.Snapshot()
		c.Reset()
		if c.Len() != 0 {
			t.Fatalf("expected empty counter after reset, got %d pairs", c.Len())
		}
		c.restore(snap)
		if c.Count(a) != 2 || c.Count(b) != 1 {
			t.Errorf("expected restored counts a=2 b=1, got a=%d b=%d", c.Count(a), c.Count(b))
		}
	})

	t.Run("concurrent increments", func(t *testing.T) {
		t.Parallel()

		c := NewIPPairCounter()
		var wg sync.WaitGroup
		for range 50 {
			wg.Go(func() {
				c.Observe([]model.IPPair{a, b})
			})
		}
		wg.Wait()
		if c.Count(a) != 50 || c.Count(b) != 50 {
			t.Errorf("expected 50 each, got a=%d b=%d", c.Count(a), c.Count(b))
		}
	})
	t.Run("concurrent batches of one pair", func(t *testing.T) {
		t.Parallel()

		const goroutines, batchSize = 16, 25
		batch := make([]model.IPPair, batchSize)
		for i := range batch {
			batch[i] = a
		}

		c := NewIPPairCounter()
		results := make([][]int, goroutines)
		var wg sync.WaitGroup
		for g := range goroutines {
			wg.Go(func() {
				results[g] = c.Observe(batch)
			})
		}
		wg.Wait()

		if got := c.Count(a); got != goroutines*batchSize {
			t.Fatalf("expected %d, got %d", goroutines*batchSize, got)
		}
		for g, counts := range results {
			for _, n := range counts {
				if n != counts[0] || n%batchSize != 0 {
					t.Errorf("goroutine %d saw another batch interleave: %v", g, counts)
					break
				}
			}
		}
	})
}
