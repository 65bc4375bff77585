package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/defensys/internal/classifier"
	"github.com/nao1215/defensys/internal/report"
)

// writeURLDataset writes n labelled URLs as CSV, alternating phishing and
// benign rows.
func writeURLDataset(t *testing.T, n int) string {
	t.Helper()

	var sb strings.Builder
	sb.WriteString("url,label\n")
	for i := range n {
		if i%2 == 0 {
			fmt.Fprintf(&sb, "http://secure-login.paypa1-verify%d.example.tk/account/update?id=%d,phishing\n", i, i*31)
		} else {
			fmt.Fprintf(&sb, "https://www.example.org/docs/page%d,legitimate\n", i)
		}
	}

	path := filepath.Join(t.TempDir(), "urls.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		t.Fatalf("failed to write urls: %v", err)
	}
	return path
}

func TestTrainCmdValidation(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown model kind", args: []string{"train", "--config", cfgPath, "--data", "x.csv", "tree"}},
		{name: "missing data flag", args: []string{"train", "--config", cfgPath, "network"}},
		{name: "missing data file", args: []string{"train", "--config", cfgPath, "--data", "/nonexistent/flows.csv", "network"}},
		{name: "invalid folds", args: []string{"train", "--config", cfgPath, "--data", "x.csv", "--folds", "1", "network"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := executeCommand(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNetworkModelWorkflow(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t, "")
	data := writeFlowDataset(t, 20)
	modelPath := filepath.Join(t.TempDir(), "network")

	stdout, _, err := executeCommand(t, "train", "network", "--config", cfgPath, "--data", data, "--out", modelPath)
	if err != nil {
		t.Fatalf("train: unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Trained network model on 20 samples") {
		t.Errorf("unexpected train output %q", stdout)
	}
	for _, name := range []string{classifier.ModelFile, classifier.ScalerFile, classifier.MetadataFile, extractorFile} {
		if _, err := os.Stat(filepath.Join(modelPath, name)); err != nil {
			t.Errorf("expected %s in model directory: %v", name, err)
		}
	}

	t.Run("predict", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "predict", "network", "--config", cfgPath, "--model", modelPath, "--json", data)
		if err != nil {
			t.Fatalf("predict: unexpected error: %v", err)
		}
		var got report.DetectionReport
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("output is not a detection report: %v", err)
		}
		if got.Total != 20 || len(got.Detections) != 20 {
			t.Errorf("expected 20 detections, got total %d, %d rows", got.Total, len(got.Detections))
		}
		if got.Attacks+got.Benign != got.Total {
			t.Errorf("attacks %d + benign %d != total %d", got.Attacks, got.Benign, got.Total)
		}
	})

	t.Run("predict rejects extra inputs", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "predict", "network", "--config", cfgPath, "--model", modelPath, data, data)
		if err == nil {
			t.Error("expected error for two network inputs")
		}
	})

	t.Run("importance", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "importance", "network", "--config", cfgPath, "--model", modelPath, "--top", "5", "--json")
		if err != nil {
			t.Fatalf("importance: unexpected error: %v", err)
		}
		var got report.ModelReport
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("output is not a model report: %v", err)
		}
		if got.Name != modelNetwork {
			t.Errorf("expected name %q, got %q", modelNetwork, got.Name)
		}
		if len(got.Importance) != 5 {
			t.Fatalf("expected 5 features, got %d", len(got.Importance))
		}
		for i := 1; i < len(got.Importance); i++ {
			if got.Importance[i].Score > got.Importance[i-1].Score {
				t.Errorf("importance not sorted at %d: %v", i, got.Importance)
			}
		}
		if got.Metadata.TrainingSamples != 20 {
			t.Errorf("expected 20 training samples, got %d", got.Metadata.TrainingSamples)
		}
	})

	t.Run("importance rejects negative top", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "importance", "network", "--config", cfgPath, "--model", modelPath, "--top", "-1")
		if err == nil {
			t.Error("expected error for negative --top")
		}
	})
}

func TestNetworkTrainGridSearch(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t, `  grid:
    n_estimators: [5]
    max_depth: [3, 0]
    min_samples_split: [2]
    min_samples_leaf: [1]
    class_weight: [""]
`)
	data := writeFlowDataset(t, 20)
	modelPath := filepath.Join(t.TempDir(), "network")

	_, _, err := executeCommand(t, "train", "network", "--config", cfgPath,
		"--data", data, "--out", modelPath, "--grid-search", "--folds", "2")
	if err != nil {
		t.Fatalf("train: unexpected error: %v", err)
	}

	m := classifier.NewNetworkModel()
	if err := m.Load(modelPath); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := m.Metadata().Hyperparameters["n_estimators"]; got != 5.0 {
		t.Errorf("expected searched n_estimators 5, got %v", got)
	}
}

func TestPhishingModelWorkflow(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestConfig(t, "")
	data := writeURLDataset(t, 20)
	modelPath := filepath.Join(t.TempDir(), "phishing")

	stdout, _, err := executeCommand(t, "train", "phishing", "--config", cfgPath, "--data", data, "--out", modelPath)
	if err != nil {
		t.Fatalf("train: unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Trained phishing model on 20 samples") {
		t.Errorf("unexpected train output %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(modelPath, classifier.ScalerFile)); !os.IsNotExist(err) {
		t.Error("phishing model must not persist a scaler")
	}

	t.Run("predict urls", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "predict", "phishing", "--config", cfgPath, "--model", modelPath, "--json",
			"http://secure-login.paypa1-verify99.example.tk/account/update?id=1", "https://www.example.org/docs/page99")
		if err != nil {
			t.Fatalf("predict: unexpected error: %v", err)
		}
		var got report.DetectionReport
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("output is not a detection report: %v", err)
		}
		if got.Total != 2 {
			t.Fatalf("expected 2 detections, got %d", got.Total)
		}
		if !got.Detections[0].Positive || got.Detections[1].Positive {
			t.Errorf("expected phishing then benign, got %+v", got.Detections)
		}
	})

	t.Run("check uses the trained model", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := executeCommand(t, "check", "--config", cfgPath, "--model", modelPath,
			"--no-reputation", "--no-save", "--json", "https://www.example.org/docs/page7")
		if err != nil {
			t.Fatalf("check: unexpected error: %v", err)
		}
		var got report.VerdictReport
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("output is not a verdict report: %v", err)
		}
		if len(got.Results) != 1 || got.Results[0].FinalVerdict.IsPhishing {
			t.Errorf("expected one benign verdict, got %+v", got.Results)
		}
	})
}
