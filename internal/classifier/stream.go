package classifier

import (
	"iter"

	"github.com/nao1215/defensys/internal/model"
)

// DefaultStreamBatch is the batch size StreamPredict uses when given zero.
const DefaultStreamBatch = 100

// StreamPredict buffers rows into batches of batchSize and yields the
// predicted classes of each batch. A final partial batch is flushed when
// rows ends. The first error is yielded once and ends the stream.
// Streamed batches bypass the prediction cache.
func (f *Facade) StreamPredict(rows iter.Seq[[]float64], batchSize int) iter.Seq2[[]int, error] {
	if batchSize <= 0 {
		batchSize = DefaultStreamBatch
	}
	return func(yield func([]int, error) bool) {
		if !f.Trained() {
			yield(nil, model.ErrNotTrained)
			return
		}

		buf := make([][]float64, 0, batchSize)
		flush := func() bool {
			classes, err := f.Predict(buf, NoCache())
			buf = buf[:0]
			if err != nil {
				yield(nil, err)
				return false
			}
			return yield(classes, nil)
		}

		for row := range rows {
			buf = append(buf, row)
			if len(buf) >= batchSize && !flush() {
				return
			}
		}
		if len(buf) > 0 {
			flush()
		}
	}
}
