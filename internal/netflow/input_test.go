package netflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/defensys/internal/model"
)

func TestDecodeRejectsUnsupportedInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	txt := filepath.Join(dir, "flows.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   Input
	}{
		{name: "zero input", in: Input{}},
		{name: "missing file", in: FromFile(filepath.Join(dir, "missing.csv"))},
		{name: "unknown extension", in: FromFile(txt)},
		{name: "unknown stream format", in: FromReader(strings.NewReader("<xml/>"), "xml")},
		{name: "JSON scalar", in: FromReader(strings.NewReader("42"), "json")},
		{name: "empty JSON", in: FromReader(strings.NewReader("  "), "json")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode(context.Background(), tc.in, quietLogger())
			if !errors.Is(err, model.ErrInputFormat) {
				t.Fatalf("expected ErrInputFormat, got %v", err)
			}
			var ife *model.InputFormatError
			if !errors.As(err, &ife) || ife.Accepted != AcceptedFormats {
				t.Errorf("expected accepted formats in error, got %v", err)
			}
		})
	}
}

func TestDecodeCSV(t *testing.T) {
	t.Parallel()

	csvData := `src_ip,dst_ip,src_port,dst_port,protocol,bytes_out,start_time,end_time,tcp_flags
10.0.0.1,10.0.0.2,40000,80,TCP,120,100,105,"{""syn"": 2, ""ACK"": 1}"
10.0.0.1,10.0.0.3,abc,,UDP,,,,
`
	path := filepath.Join(t.TempDir(), "flows.csv")
	if err := os.WriteFile(path, []byte(csvData), 0o600); err != nil {
		t.Fatal(err)
	}

	batch, err := Decode(context.Background(), FromFile(path), quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", batch.Len())
	}

	first := batch[0]
	if *first.SrcPort != 40000 || *first.DstPort != 80 || *first.BytesOut != 120 {
		t.Errorf("unexpected first record: %+v", first)
	}
	if d, ok := first.Duration(); !ok || d != 5 {
		t.Errorf("expected duration 5, got %v (%v)", d, ok)
	}
	if first.Flag(model.FlagSYN) != 2 || first.Flag(model.FlagACK) != 1 {
		t.Errorf("unexpected flags: %v", first.TCPFlags)
	}

	second := batch[1]
	if second.SrcPort != nil || second.DstPort != nil || second.BytesOut != nil || second.TCPFlags != nil {
		t.Errorf("expected malformed and empty cells to be absent, got %+v", second)
	}
	if second.Protocol == nil || *second.Protocol != "UDP" {
		t.Errorf("expected protocol UDP, got %v", second.Protocol)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	t.Run("array of objects", func(t *testing.T) {
		t.Parallel()

		in := FromReader(strings.NewReader(`[
			{"src_ip": "10.0.0.1", "dst_ip": "10.0.0.2", "dst_port": 443, "tcp_flags": {"SYN": 1}},
			{"SRC_IP": "10.0.0.5", "start_time": "2024-01-01T00:00:00Z", "end_time": "2024-01-01T00:00:10Z"}
		]`), "JSON")
		batch, err := Decode(context.Background(), in, quietLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if batch.Len() != 2 {
			t.Fatalf("expected 2 records, got %d", batch.Len())
		}
		if *batch[0].DstPort != 443 || batch[0].Flag(model.FlagSYN) != 1 {
			t.Errorf("unexpected first record: %+v", batch[0])
		}
		if batch[1].SrcIP == nil || *batch[1].SrcIP != "10.0.0.5" {
			t.Errorf("expected case-insensitive keys, got %+v", batch[1])
		}
		if d, ok := batch[1].Duration(); !ok || d != 10 {
			t.Errorf("expected RFC 3339 duration 10, got %v (%v)", d, ok)
		}
	})

	t.Run("single object file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "flow.json")
		if err := os.WriteFile(path, []byte(`{"protocol": "icmp", "dst_port": 1.5}`), 0o600); err != nil {
			t.Fatal(err)
		}
		batch, err := Decode(context.Background(), FromFile(path), quietLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if batch.Len() != 1 || *batch[0].Protocol != "icmp" {
			t.Fatalf("unexpected batch: %+v", batch)
		}
		if batch[0].DstPort != nil {
			t.Errorf("expected fractional port to be dropped, got %v", *batch[0].DstPort)
		}
	})
}

func TestDecodeInMemory(t *testing.T) {
	t.Parallel()

	r := model.FlowRecord{SrcIP: model.Ptr("10.0.0.1")}
	batch, err := Decode(context.Background(), FromRecord(r), nil)
	if err != nil || batch.Len() != 1 {
		t.Fatalf("expected single record, got %v, %v", batch, err)
	}

	batch, err = Decode(context.Background(), FromMaps([]map[string]any{{"bytes_in": "12.5"}, {"bytes_in": nil}}), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *batch[0].BytesIn != 12.5 || batch[1].BytesIn != nil {
		t.Errorf("unexpected batch: %+v", batch)
	}
}

func TestInputString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   Input
		want string
	}{
		{FromRecords(make([]model.FlowRecord, 3)), "records(3)"},
		{FromMap(map[string]any{}), "maps(1)"},
		{FromFile("a.pcap"), "file(a.pcap)"},
		{FromReader(strings.NewReader(""), "CSV"), "reader(csv)"},
		{Input{}, "none"},
	}
	for _, tc := range tests {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}
