package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of URLs checked at once.
const DefaultConcurrency = 10

// BatchProcessor checks multiple URLs concurrently, one fresh pipeline per
// URL.
type BatchProcessor struct {
	pipelineFactory func() *Pipeline
	concurrency     int
	logger          *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent checks.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch checks every URL and returns the checks in input order.
// A failed check keeps its error in Check.Err and does not stop the
// others. The returned error is non-nil only on cancellation; checks that
// never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]*Check, error) {
	results := make([]*Check, len(urls))
	err := bp.ProcessBatchWithCallback(ctx, urls, func(check *Check, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = check
	})
	return results, err
}

// ProcessBatchWithCallback checks every URL and calls callback for each
// finished check with its index in urls. The callback is called
// concurrently.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(check *Check, index int),
) error {
	bp.logger.Info("starting batch check",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, url := range urls {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			check := NewCheck(url)
			if err := bp.pipelineFactory().Execute(ctx, check); err != nil {
				bp.logger.Warn("check failed", "url", url, "error", err)
			}
			callback(check, i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch check complete",
		"total_urls", len(urls),
		"elapsed", time.Since(startTime),
	)
	return err
}
