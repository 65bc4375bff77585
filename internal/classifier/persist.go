package classifier

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/defensys/internal/forest"
	"github.com/nao1215/defensys/internal/model"
)

// File names inside a saved model directory.
const (
	ModelFile    = "model.pkl"
	ScalerFile   = "scaler.pkl"
	MetadataFile = "model_metadata.json"
)

// Save writes the model into dir, creating it if needed, and returns dir.
// UpdatedAt is bumped before the metadata is written.
func (f *Facade) Save(dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.forest == nil || !f.forest.Fitted() {
		return "", model.ErrNotTrained
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create model directory %s: %w", dir, err)
	}

	f.metadata.UpdatedAt = f.now()

	if err := writeGob(filepath.Join(dir, ModelFile), f.forest); err != nil {
		return "", err
	}
	if f.scaled && f.scaler != nil {
		if err := writeGob(filepath.Join(dir, ScalerFile), f.scaler); err != nil {
			return "", err
		}
	}

	data, err := json.MarshalIndent(f.metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode model metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write model metadata: %w", err)
	}

	f.logger.Debug("model saved", "model", f.name, "dir", dir)
	return dir, nil
}

// Load restores a model saved by Save. path may also be a single gob file
// holding only the forest; the scaler and metadata then keep their
// defaults. The prediction cache is cleared.
func (f *Facade) Load(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	rf := &forest.RandomForest{}
	var scaler *forest.StandardScaler
	meta := f.emptyMetadata()

	if info.IsDir() {
		if err := readGob(filepath.Join(path, ModelFile), rf); err != nil {
			return err
		}
		if f.scaled {
			s := &forest.StandardScaler{}
			err := readGob(filepath.Join(path, ScalerFile), s)
			switch {
			case err == nil:
				scaler = s
			case !errors.Is(err, fs.ErrNotExist):
				return err
			}
		}
		data, err := os.ReadFile(filepath.Join(path, MetadataFile)) //nolint:gosec // model directory chosen by the caller
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &meta); err != nil {
				return fmt.Errorf("failed to decode model metadata: %w", err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("failed to read model metadata: %w", err)
		}
	} else {
		if err := readGob(path, rf); err != nil {
			return err
		}
		f.logger.Debug("loaded legacy single-file model", "model", f.name, "path", path)
	}

	if !rf.Fitted() {
		return fmt.Errorf("failed to load model from %s: %w", path, forest.ErrNotFitted)
	}

	f.mu.Lock()
	f.forest = rf
	f.scaler = scaler
	f.metadata = meta
	f.cache.clear()
	f.mu.Unlock()
	return nil
}

func writeGob(path string, v any) error {
	file, err := os.Create(path) //nolint:gosec // model directory chosen by the caller
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := gob.NewEncoder(file).Encode(v); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}

func readGob(path string, v any) error {
	file, err := os.Open(path) //nolint:gosec // model directory chosen by the caller
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
