package netflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/defensys/internal/model"
)

// AcceptedFormats names the inputs Decode understands. It is part of every
// InputFormatError returned by this package.
const AcceptedFormats = "record batch, single record, map or list of maps, CSV/JSON/PCAP file path"

// inputKind tags an Input variant.
type inputKind int

const (
	kindNone inputKind = iota
	kindRecords
	kindMaps
	kindFile
	kindReader
)

// Input is a tagged union over the accepted raw inputs. Build one with the
// From* constructors; the zero Input is rejected by Decode.
type Input struct {
	kind    inputKind
	records model.FlowBatch
	maps    []map[string]any
	path    string
	reader  io.Reader
	format  string
}

// FromRecords wraps an in-memory batch of records.
func FromRecords(records []model.FlowRecord) Input {
	return Input{kind: kindRecords, records: records}
}

// FromRecord wraps a single record.
func FromRecord(r model.FlowRecord) Input {
	return Input{kind: kindRecords, records: model.FlowBatch{r}}
}

// FromMap wraps one loosely typed record keyed by column name.
func FromMap(m map[string]any) Input {
	return Input{kind: kindMaps, maps: []map[string]any{m}}
}

// FromMaps wraps a list of loosely typed records.
func FromMaps(ms []map[string]any) Input {
	return Input{kind: kindMaps, maps: ms}
}

// FromFile wraps a path whose extension (.csv, .json or .pcap) selects the
// decoder.
func FromFile(path string) Input {
	return Input{kind: kindFile, path: path}
}

// FromReader wraps a stream in the given format ("csv" or "json").
func FromReader(r io.Reader, format string) Input {
	return Input{kind: kindReader, reader: r, format: strings.ToLower(format)}
}

// String describes the variant for logs.
func (in Input) String() string {
	switch in.kind {
	case kindRecords:
		return fmt.Sprintf("records(%d)", len(in.records))
	case kindMaps:
		return fmt.Sprintf("maps(%d)", len(in.maps))
	case kindFile:
		return "file(" + in.path + ")"
	case kindReader:
		return "reader(" + in.format + ")"
	default:
		return "none"
	}
}

// Decode resolves in into a flow batch. Unsupported variants, missing
// files and unknown extensions yield an *model.InputFormatError. Values that
// cannot be parsed inside an otherwise valid input are dropped from their
// record and logged at debug level.
func Decode(ctx context.Context, in Input, logger *slog.Logger) (model.FlowBatch, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch in.kind {
	case kindRecords:
		return in.records, nil
	case kindMaps:
		batch := make(model.FlowBatch, len(in.maps))
		for i, m := range in.maps {
			batch[i] = recordFromMap(m, logger)
		}
		return batch, nil
	case kindFile:
		return decodeFile(ctx, in.path, logger)
	case kindReader:
		switch in.format {
		case "csv":
			return decodeCSV(in.reader, logger)
		case "json":
			return decodeJSON(in.reader, logger)
		default:
			return nil, model.NewInputFormatError(fmt.Sprintf("unsupported stream format %q", in.format), AcceptedFormats)
		}
	default:
		return nil, model.NewInputFormatError("empty input", AcceptedFormats)
	}
}

// decodeFile dispatches on the file extension.
func decodeFile(ctx context.Context, path string, logger *slog.Logger) (model.FlowBatch, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, model.NewInputFormatError(fmt.Sprintf("cannot read %s: %v", path, err), AcceptedFormats)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pcap":
		return ReadPCAP(ctx, path, logger)
	case ".csv", ".json":
		f, err := os.Open(path) //nolint:gosec // user-provided input path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		if ext == ".csv" {
			return decodeCSV(f, logger)
		}
		return decodeJSON(f, logger)
	default:
		return nil, model.NewInputFormatError(fmt.Sprintf("unsupported file extension %q", ext), AcceptedFormats)
	}
}

// decodeCSV reads a header row of column names followed by one record per
// line. Empty cells are treated as absent.
func decodeCSV(r io.Reader, logger *slog.Logger) (model.FlowBatch, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return model.FlowBatch{}, nil
	}
	if err != nil {
		return nil, model.NewInputFormatError(fmt.Sprintf("invalid CSV header: %v", err), AcceptedFormats)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var batch model.FlowBatch
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, model.NewInputFormatError(fmt.Sprintf("invalid CSV at line %d: %v", line, err), AcceptedFormats)
		}
		m := make(map[string]any, len(header))
		for i, name := range header {
			if i < len(fields) && fields[i] != "" {
				m[name] = fields[i]
			}
		}
		batch = append(batch, recordFromMap(m, logger))
	}
	return batch, nil
}

// decodeJSON accepts either an array of objects or a single object.
func decodeJSON(r io.Reader, logger *slog.Logger) (model.FlowBatch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, model.NewInputFormatError("empty JSON document", AcceptedFormats)
	}

	var maps []map[string]any
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &maps); err != nil {
			return nil, model.NewInputFormatError(fmt.Sprintf("invalid JSON array: %v", err), AcceptedFormats)
		}
	case '{':
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, model.NewInputFormatError(fmt.Sprintf("invalid JSON object: %v", err), AcceptedFormats)
		}
		maps = []map[string]any{m}
	default:
		return nil, model.NewInputFormatError("JSON input must be an object or an array of objects", AcceptedFormats)
	}

	batch := make(model.FlowBatch, len(maps))
	for i, m := range maps {
		batch[i] = recordFromMap(m, logger)
	}
	return batch, nil
}

// recordFromMap converts a loosely typed record. Unknown keys are ignored;
// unparsable values are dropped and logged.
func recordFromMap(m map[string]any, logger *slog.Logger) model.FlowRecord {
	var r model.FlowRecord
	drop := func(field string, v any) {
		logger.Debug("dropping malformed value",
			"error", &model.MalformedRecordError{Field: field, Value: fmt.Sprint(v)},
		)
	}

	for name, raw := range m {
		if raw == nil {
			continue
		}
		key := strings.ToLower(name)
		switch key {
		case "src_ip":
			r.SrcIP = model.Ptr(fmt.Sprint(raw))
		case "dst_ip":
			r.DstIP = model.Ptr(fmt.Sprint(raw))
		case "protocol":
			r.Protocol = model.Ptr(fmt.Sprint(raw))
		case "src_port", "dst_port":
			f, ok := toFloat(raw)
			if !ok || f != math.Trunc(f) {
				drop(key, raw)
				continue
			}
			port := model.Ptr(int(f))
			if key == "src_port" {
				r.SrcPort = port
			} else {
				r.DstPort = port
			}
		case "bytes_in", "bytes_out", "packets_in", "packets_out":
			f, ok := toFloat(raw)
			if !ok {
				drop(key, raw)
				continue
			}
			switch key {
			case "bytes_in":
				r.BytesIn = model.Ptr(f)
			case "bytes_out":
				r.BytesOut = model.Ptr(f)
			case "packets_in":
				r.PacketsIn = model.Ptr(f)
			default:
				r.PacketsOut = model.Ptr(f)
			}
		case "start_time", "end_time":
			f, ok := toTimestamp(raw)
			if !ok {
				drop(key, raw)
				continue
			}
			if key == "start_time" {
				r.StartTime = model.Ptr(f)
			} else {
				r.EndTime = model.Ptr(f)
			}
		case "tcp_flags":
			flags, ok := toFlags(raw)
			if !ok {
				drop(key, raw)
				continue
			}
			r.TCPFlags = flags
		}
	}
	return r
}

// toFloat converts JSON numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f)
	default:
		return 0, false
	}
}

// toTimestamp accepts unix seconds or an RFC 3339 string.
func toTimestamp(v any) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return float64(t.UnixNano()) / float64(time.Second), true
}

// toFlags accepts a flag-count object or its JSON string form.
func toFlags(v any) (map[string]float64, bool) {
	if s, ok := v.(string); ok {
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, false
		}
		v = m
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	flags := make(map[string]float64, len(m))
	for name, raw := range m {
		f, ok := toFloat(raw)
		if !ok {
			return nil, false
		}
		flags[strings.ToUpper(name)] = f
	}
	return flags, true
}
