package netflow

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/nao1215/defensys/internal/forest"
)

// ErrColumnMismatch is returned by Load when the saved column list differs
// from this build's FeatureNames.
var ErrColumnMismatch = errors.New("netflow: saved feature columns do not match")

// extractorState is the gob payload written by Save.
type extractorState struct {
	Columns    []string
	Heuristics Heuristics
	Scaler     *forest.StandardScaler
	Pairs      []PairCount
}

// Save writes the scaler, the IP pair counts, the heuristics and the column
// list to path. Parent directories are created as needed.
func (e *Extractor) Save(path string) error {
	state := extractorState{
		Columns:    Names(),
		Heuristics: e.heuristics,
		Scaler:     e.Scaler(),
		Pairs:      e.counter.Snapshot(),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path) //nolint:gosec // caller-chosen output path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := gob.NewEncoder(f).Encode(&state); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode extractor state: %w", err)
	}
	return f.Close()
}

// Load replaces the extractor's scaler, counter contents and heuristics
// with the state saved at path.
func (e *Extractor) Load(path string) error {
	f, err := os.Open(path) //nolint:gosec // caller-chosen input path
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var state extractorState
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode extractor state from %s: %w", path, err)
	}
	if !slices.Equal(state.Columns, Names()) {
		return fmt.Errorf("%w: %d saved, %d expected", ErrColumnMismatch, len(state.Columns), NumFeatures)
	}

	e.mu.Lock()
	e.scaler = state.Scaler
	e.heuristics = state.Heuristics
	e.mu.Unlock()
	e.counter.restore(state.Pairs)
	return nil
}
