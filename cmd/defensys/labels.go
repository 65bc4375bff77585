package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultLabelColumn is the label column used when --labels is not given.
const defaultLabelColumn = "label"

// errLabelFormat is returned for training files that carry no usable labels.
var errLabelFormat = errors.New("invalid training labels")

// readLabels reads the class of every row of a CSV or JSON training file
// from column. Rows appear in file order, matching the feature decoders.
func readLabels(path, column string) ([]int, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided training file is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	column = strings.ToLower(strings.TrimSpace(column))
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return csvLabels(f, column)
	case ".json":
		return jsonLabels(f, column)
	default:
		return nil, fmt.Errorf("%w: labels must come from a .csv or .json file, got %q", errLabelFormat, ext)
	}
}

func csvLabels(r io.Reader, column string) ([]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read CSV header: %v", errLabelFormat, err)
	}
	col := -1
	for i, name := range header {
		if strings.ToLower(strings.TrimSpace(name)) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: CSV has no %q column", errLabelFormat, column)
	}

	var labels []int
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return labels, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", errLabelFormat, line, err)
		}
		if col >= len(fields) {
			return nil, fmt.Errorf("%w: line %d has no %q value", errLabelFormat, line, column)
		}
		label, err := parseLabel(fields[col])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		labels = append(labels, label)
	}
}

func jsonLabels(r io.Reader, column string) ([]int, error) {
	var records []map[string]any
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: JSON must be an array of objects: %v", errLabelFormat, err)
	}

	labels := make([]int, len(records))
	for i, rec := range records {
		var raw any
		for k, v := range rec {
			if strings.ToLower(k) == column {
				raw = v
				break
			}
		}
		var err error
		switch v := raw.(type) {
		case nil:
			err = fmt.Errorf("%w: record %d has no %q field", errLabelFormat, i, column)
		case bool:
			if v {
				labels[i] = 1
			}
		case float64:
			labels[i], err = parseLabel(strconv.FormatFloat(v, 'f', -1, 64))
		case string:
			labels[i], err = parseLabel(v)
		default:
			err = fmt.Errorf("%w: record %d has a %T label", errLabelFormat, i, raw)
		}
		if err != nil {
			return nil, err
		}
	}
	return labels, nil
}

// parseLabel maps a class name or non-negative integer to a class index.
// Attack and phishing names map to 1, benign names to 0.
func parseLabel(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "attack", "malicious", "phishing", "phish", "bad":
		return 1, nil
	case "0", "false", "no", "benign", "normal", "legitimate", "good":
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: unrecognized label %q", errLabelFormat, s)
	}
	return n, nil
}
