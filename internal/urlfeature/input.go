package urlfeature

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/defensys/internal/model"
)

// AcceptedFormats names the inputs Decode understands. It is part of every
// InputFormatError returned by this package.
const AcceptedFormats = "URL string, record with a 'url' field, batch of such records, or a file of URLs"

// Input is a tagged union over the accepted raw inputs. Build one with the
// From* constructors; the zero Input is rejected by Decode.
type Input struct {
	kind    inputKind
	urls    []string
	records []map[string]any
	path    string
}

type inputKind int

const (
	kindNone inputKind = iota
	kindURLs
	kindRecords
	kindFile
)

// FromURL wraps one bare URL.
func FromURL(u string) Input {
	return Input{kind: kindURLs, urls: []string{u}}
}

// FromURLs wraps a list of bare URLs.
func FromURLs(urls []string) Input {
	return Input{kind: kindURLs, urls: urls}
}

// FromRecord wraps one record that must carry a string "url" field.
func FromRecord(r map[string]any) Input {
	return Input{kind: kindRecords, records: []map[string]any{r}}
}

// FromRecords wraps a batch of records that must each carry a string "url"
// field.
func FromRecords(rs []map[string]any) Input {
	return Input{kind: kindRecords, records: rs}
}

// FromFile wraps a file of URLs. A .csv file needs a "url" column, a .json
// file holds an array of strings or records, anything else is read as one
// URL per line with blank lines and '#' comments skipped.
func FromFile(path string) Input {
	return Input{kind: kindFile, path: path}
}

// Decode resolves in into its URLs.
func Decode(in Input) ([]string, error) {
	switch in.kind {
	case kindURLs:
		return in.urls, nil
	case kindRecords:
		return urlsFromRecords(in.records)
	case kindFile:
		return decodeFile(in.path)
	default:
		return nil, model.NewInputFormatError("empty input", AcceptedFormats)
	}
}

// urlsFromRecords pulls the "url" field out of every record.
func urlsFromRecords(records []map[string]any) ([]string, error) {
	urls := make([]string, len(records))
	for i, r := range records {
		raw, ok := r["url"]
		if !ok {
			return nil, model.NewInputFormatError(fmt.Sprintf("record %d has no 'url' field", i), AcceptedFormats)
		}
		s, ok := raw.(string)
		if !ok {
			return nil, model.NewInputFormatError(fmt.Sprintf("record %d has a non-string 'url' field of type %T", i, raw), AcceptedFormats)
		}
		urls[i] = s
	}
	return urls, nil
}

func decodeFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided input path is intentional
	if err != nil {
		return nil, model.NewInputFormatError(fmt.Sprintf("cannot read %s: %v", path, err), AcceptedFormats)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return decodeCSV(f)
	case ".json":
		return decodeJSON(f)
	default:
		return decodeLines(f)
	}
}

func decodeCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, model.NewInputFormatError(fmt.Sprintf("invalid CSV header: %v", err), AcceptedFormats)
	}
	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "url") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, model.NewInputFormatError("CSV input has no 'url' column", AcceptedFormats)
	}

	var urls []string
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return urls, nil
		}
		if err != nil {
			return nil, model.NewInputFormatError(fmt.Sprintf("invalid CSV: %v", err), AcceptedFormats)
		}
		if col < len(fields) {
			urls = append(urls, fields[col])
		} else {
			urls = append(urls, "")
		}
	}
}

func decodeJSON(r io.Reader) ([]string, error) {
	var items []any
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, model.NewInputFormatError(fmt.Sprintf("JSON input must be an array: %v", err), AcceptedFormats)
	}
	records := make([]map[string]any, len(items))
	for i, item := range items {
		switch x := item.(type) {
		case string:
			records[i] = map[string]any{"url": x}
		case map[string]any:
			records[i] = x
		default:
			return nil, model.NewInputFormatError(fmt.Sprintf("item %d is neither a URL nor a record", i), AcceptedFormats)
		}
	}
	return urlsFromRecords(records)
}

func decodeLines(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return urls, nil
}
