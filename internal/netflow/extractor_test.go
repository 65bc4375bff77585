package netflow

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/defensys/internal/model"
)

const epsilon = 1e-9

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// flow builds a fully populated record.
func flow(src, dst string, srcPort, dstPort int) model.FlowRecord {
	return model.FlowRecord{
		SrcIP:      model.Ptr(src),
		DstIP:      model.Ptr(dst),
		SrcPort:    model.Ptr(srcPort),
		DstPort:    model.Ptr(dstPort),
		Protocol:   model.Ptr("TCP"),
		BytesIn:    model.Ptr(500.0),
		BytesOut:   model.Ptr(1500.0),
		PacketsIn:  model.Ptr(10.0),
		PacketsOut: model.Ptr(10.0),
		StartTime:  model.Ptr(100.0),
		EndTime:    model.Ptr(110.0),
	}
}

func TestExtractorEmptyRecordDefaults(t *testing.T) {
	t.Parallel()

	e := NewExtractor(WithLogger(quietLogger()))
	rows := e.Extract(model.FlowBatch{{}})

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if len(rows[0]) != NumFeatures || NumFeatures != 52 {
		t.Fatalf("expected 52 columns, got %d", len(rows[0]))
	}

	want := map[int]float64{
		ColFlowDuration:         30,
		ColFlowBytesPerSec:      0,
		ColFlowAvgPacketSize:    0,
		ColFlowIATMean:          0.1,
		ColFlowIATStd:           0.05,
		ColFlowIATMax:           0.5,
		ColFlowIATMin:           0.01,
		ColActiveTime:           24,
		ColIdleTime:             6,
		ColIsTCP:                1,
		ColIsUDP:                0,
		ColSrcIPIsPrivate:       0,
		ColIPSameSubnet:         0,
		ColIPCommunicationCount: 0,
		ColEntropyPacketSize:    0,
		ColPortScanProbability:  0,
		ColProtocolAnomalyScore: 2,
		ColFragmentCount:        0,
	}
	for col, v := range want {
		if !near(rows[0][col], v) {
			t.Errorf("%s: expected %v, got %v", FeatureNames[col], v, rows[0][col])
		}
	}
	if e.Counter().Len() != 0 {
		t.Errorf("records without addresses must not touch the counter")
	}
}

func TestExtractorMixedBatchDefaultsPerRecord(t *testing.T) {
	t.Parallel()

	full := flow("10.0.0.1", "10.0.0.2", 40000, 443)
	full.Protocol = model.Ptr("udp")
	sparse := model.FlowRecord{BytesIn: model.Ptr(100.0)}

	rows := NewExtractor(WithLogger(quietLogger())).Extract(model.FlowBatch{full, sparse})

	tests := []struct {
		name string
		row  int
		col  int
		want float64
	}{
		{"populated protocol", 0, ColIsUDP, 1},
		{"populated protocol is not tcp", 0, ColIsTCP, 0},
		{"missing protocol defaults to tcp", 1, ColIsTCP, 1},
		{"populated duration", 0, ColFlowDuration, 10},
		{"missing timestamps default duration", 1, ColFlowDuration, 30},
		{"missing bytes_out counts as zero", 1, ColFlowBytesOut, 0},
		{"present bytes_in kept", 1, ColFlowBytesIn, 100},
		{"missing ports are not a service", 1, ColIsHTTPS, 0},
		{"populated ports are a service", 0, ColIsHTTPS, 1},
	}
	for _, tc := range tests {
		if got := rows[tc.row][tc.col]; !near(got, tc.want) {
			t.Errorf("%s: %s expected %v, got %v", tc.name, FeatureNames[tc.col], tc.want, got)
		}
	}
}

func TestExtractorRowFeatures(t *testing.T) {
	t.Parallel()

	t.Run("rates, sizes and flags", func(t *testing.T) {
		t.Parallel()

		r := flow("192.168.1.10", "192.168.1.20", 50000, 443)
		r.Protocol = model.Ptr(" udp ")
		r.TCPFlags = map[string]float64{"SYN": 2, "ACK": 6, "FIN": 1, "RST": 1}

		row := NewExtractor(WithLogger(quietLogger())).Extract(model.FlowBatch{r})[0]

		want := map[int]float64{
			ColFlowDuration:          10,
			ColFlowBytesPerSec:       200,
			ColFlowPacketsPerSec:     2,
			ColFlowAvgPacketSize:     100,
			ColPacketSizeMean:        100,
			ColPacketSizeStd:         30,
			ColPacketSizeMin:         50,
			ColPacketSizeMax:         150,
			ColPacketLenVariance:     900,
			ColActiveTime:            8,
			ColIdleTime:              2,
			ColSYNFlagCount:          2,
			ColACKFlagCount:          6,
			ColFINFlagRate:           0.1,
			ColSYNFlagRate:           0.2,
			ColRSTFlagRate:           0.1,
			ColIsTCP:                 0,
			ColIsUDP:                 1,
			ColIsHTTPS:               1,
			ColIsHTTP:                0,
			ColSourcePortIsWellKnown: 0,
			ColDestPortIsWellKnown:   1,
			ColSrcIPIsPrivate:        1,
			ColDstIPIsPrivate:        1,
			ColIPSameSubnet:          1,
			ColIPCommunicationCount:  1,
			// |0-2| + 5*0.2 + 5*0.1 - 0.5*1
			ColProtocolAnomalyScore: 3,
		}
		for col, v := range want {
			if !near(row[col], v) {
				t.Errorf("%s: expected %v, got %v", FeatureNames[col], v, row[col])
			}
		}
	})

	t.Run("zero duration uses the rate floor", func(t *testing.T) {
		t.Parallel()

		r := flow("10.0.0.1", "10.0.0.2", 1, 2)
		r.EndTime = model.Ptr(100.0)
		row := NewExtractor().Extract(model.FlowBatch{r})[0]

		if !near(row[ColFlowDuration], 0) {
			t.Errorf("expected duration 0, got %v", row[ColFlowDuration])
		}
		if !near(row[ColFlowBytesPerSec], 2000/0.1) {
			t.Errorf("expected %v bytes/s, got %v", 2000/0.1, row[ColFlowBytesPerSec])
		}
	})

	t.Run("public and cross-subnet addresses", func(t *testing.T) {
		t.Parallel()

		row := NewExtractor().Extract(model.FlowBatch{flow("192.168.1.10", "8.8.8.8", 53, 40000)})[0]
		if row[ColDstIPIsPrivate] != 0 || row[ColIPSameSubnet] != 0 {
			t.Errorf("expected public cross-subnet destination, got private=%v same=%v",
				row[ColDstIPIsPrivate], row[ColIPSameSubnet])
		}
		if row[ColIsDNS] != 1 || row[ColSourcePortIsWellKnown] != 1 {
			t.Errorf("expected DNS on the source side, got dns=%v wellknown=%v",
				row[ColIsDNS], row[ColSourcePortIsWellKnown])
		}
	})

	t.Run("malformed address falls back", func(t *testing.T) {
		t.Parallel()

		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
		row := NewExtractor(WithLogger(logger)).Extract(model.FlowBatch{flow("not-an-ip", "10.0.0.2", 1, 2)})[0]

		if row[ColSrcIPIsPrivate] != 0 || row[ColIPSameSubnet] != 0 {
			t.Errorf("expected fallback 0 for malformed source")
		}
		if row[ColDstIPIsPrivate] != 1 {
			t.Errorf("expected private destination")
		}
		if !strings.Contains(logs.String(), "src_ip") {
			t.Errorf("expected malformed field to be logged, got %q", logs.String())
		}
	})
}

func TestExtractorBatchFeatures(t *testing.T) {
	t.Parallel()

	t.Run("port entropy needs more than five rows", func(t *testing.T) {
		t.Parallel()

		for _, tc := range []struct {
			rows int
			want float64
		}{
			{rows: 5, want: 0},
			{rows: 6, want: math.Log2(6)},
			{rows: 8, want: 3},
		} {
			batch := make(model.FlowBatch, tc.rows)
			for i := range batch {
				batch[i] = flow("10.0.0.1", "10.0.0.2", 2000+i, 3000+i)
			}
			rows := NewExtractor().Extract(batch)
			for i, row := range rows {
				if !near(row[ColEntropyDstPort], tc.want) || !near(row[ColEntropySrcPort], tc.want) {
					t.Errorf("rows=%d row %d: expected port entropy %v, got src=%v dst=%v",
						tc.rows, i, tc.want, row[ColEntropySrcPort], row[ColEntropyDstPort])
				}
			}
		}
	})

	t.Run("packet size entropy and total", func(t *testing.T) {
		t.Parallel()

		small := flow("10.0.0.1", "10.0.0.2", 1, 2)
		large := flow("10.0.0.1", "10.0.0.2", 1, 2)
		large.BytesOut = model.Ptr(3500.0)

		rows := NewExtractor().Extract(model.FlowBatch{small, large})
		for _, row := range rows {
			if !near(row[ColEntropyPacketSize], 1) {
				t.Errorf("expected packet size entropy 1, got %v", row[ColEntropyPacketSize])
			}
			if !near(row[ColTotalEntropy], 1.0/3) {
				t.Errorf("expected total entropy 1/3, got %v", row[ColTotalEntropy])
			}
		}
	})

	t.Run("anomaly score is clipped", func(t *testing.T) {
		t.Parallel()

		// 256 distinct high ports: dst entropy 8, all-SYN flags.
		high := make(model.FlowBatch, 256)
		for i := range high {
			high[i] = flow("10.0.0.1", "10.0.0.2", 40000, 2000+i)
			high[i].TCPFlags = map[string]float64{"SYN": 1}
		}
		for _, row := range NewExtractor().Extract(high) {
			if row[ColProtocolAnomalyScore] != 10 {
				t.Fatalf("expected anomaly clipped to 10, got %v", row[ColProtocolAnomalyScore])
			}
		}

		// Four evenly used well-known ports: dst entropy 2, no flags.
		ports := []int{80, 443, 22, 25}
		low := make(model.FlowBatch, 8)
		for i := range low {
			low[i] = flow("10.0.0.1", "10.0.0.2", 40000, ports[i%len(ports)])
		}
		for _, row := range NewExtractor().Extract(low) {
			if row[ColProtocolAnomalyScore] != 0 {
				t.Fatalf("expected anomaly clipped to 0, got %v", row[ColProtocolAnomalyScore])
			}
		}
	})
}

func TestExtractorIPCommunicationCount(t *testing.T) {
	t.Parallel()

	t.Run("whole batch is counted before reading", func(t *testing.T) {
		t.Parallel()

		e := NewExtractor()
		a := flow("10.0.0.1", "10.0.0.2", 1, 2)
		b := flow("10.0.0.3", "10.0.0.2", 1, 2)

		rows := e.Extract(model.FlowBatch{a, a, b})
		got := []float64{rows[0][ColIPCommunicationCount], rows[1][ColIPCommunicationCount], rows[2][ColIPCommunicationCount]}
		want := []float64{2, 2, 1}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("row %d: expected %v, got %v", i, want[i], got[i])
			}
		}

		rows = e.Extract(model.FlowBatch{a})
		if rows[0][ColIPCommunicationCount] != 3 {
			t.Errorf("expected count to persist across calls, got %v", rows[0][ColIPCommunicationCount])
		}
	})

	t.Run("concurrent batches", func(t *testing.T) {
		t.Parallel()

		const goroutines, rows = 8, 10
		r := flow("10.0.0.1", "10.0.0.2", 1, 2)
		batch := make(model.FlowBatch, rows)
		for i := range batch {
			batch[i] = r
		}

		e := NewExtractor()
		var wg sync.WaitGroup
		for range goroutines {
			wg.Go(func() {
				e.Extract(batch)
			})
		}
		wg.Wait()

		if got := e.Counter().Count(model.IPPair{Src: "10.0.0.1", Dst: "10.0.0.2"}); got != goroutines*rows {
			t.Errorf("expected %d, got %d", goroutines*rows, got)
		}
	})

	t.Run("shared counter", func(t *testing.T) {
		t.Parallel()

		counter := NewIPPairCounter()
		r := flow("10.0.0.1", "10.0.0.2", 1, 2)
		NewExtractor(WithCounter(counter)).Extract(model.FlowBatch{r})
		rows := NewExtractor(WithCounter(counter)).Extract(model.FlowBatch{r})

		if rows[0][ColIPCommunicationCount] != 2 {
			t.Errorf("expected 2, got %v", rows[0][ColIPCommunicationCount])
		}
	})
}

func TestExtractorScaling(t *testing.T) {
	t.Parallel()

	batch := model.FlowBatch{
		flow("10.0.0.1", "10.0.0.2", 1000, 80),
		flow("10.0.0.3", "10.0.0.2", 1001, 443),
		flow("10.0.0.4", "8.8.8.8", 1002, 53),
	}
	batch[1].BytesIn = model.Ptr(9000.0)
	batch[2].BytesIn = model.Ptr(100.0)

	t.Run("transform requires fit", func(t *testing.T) {
		t.Parallel()

		_, err := NewExtractor().Transform(batch)
		if !errors.Is(err, ErrScalerNotFitted) {
			t.Errorf("expected ErrScalerNotFitted, got %v", err)
		}
	})

	t.Run("fit transform centers columns", func(t *testing.T) {
		t.Parallel()

		e := NewExtractor()
		rows, err := e.FitTransform(batch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !e.Fitted() {
			t.Fatal("expected fitted extractor")
		}
		for _, col := range []int{ColFlowBytesIn, ColIPCommunicationCount, ColDstIPIsPrivate} {
			var sum float64
			for _, row := range rows {
				sum += row[col]
			}
			if !near(sum/float64(len(rows)), 0) {
				t.Errorf("%s: expected mean 0, got %v", FeatureNames[col], sum/float64(len(rows)))
			}
		}
	})
}

func TestExtractorPreprocess(t *testing.T) {
	t.Parallel()

	e := NewExtractor(WithLogger(quietLogger()))

	rows, err := e.Preprocess(context.Background(), FromMap(map[string]any{
		"src_ip":   "10.0.0.1",
		"dst_ip":   "10.0.0.2",
		"dst_port": 22.0,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0][ColIsSSH] != 1 {
		t.Errorf("expected one SSH row, got %v", rows)
	}

	if _, err := e.Preprocess(context.Background(), Input{}); !errors.Is(err, model.ErrInputFormat) {
		t.Errorf("expected ErrInputFormat, got %v", err)
	}
}

func TestExtractorSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "extractor.gob")
	batch := model.FlowBatch{
		flow("10.0.0.1", "10.0.0.2", 1000, 80),
		flow("10.0.0.3", "10.0.0.2", 1001, 443),
	}
	batch[1].BytesOut = model.Ptr(10.0)

	src := NewExtractor()
	if err := src.Fit(batch); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if err := src.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	dst := NewExtractor()
	if err := dst.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !dst.Fitted() {
		t.Fatal("expected loaded extractor to be fitted")
	}
	pair := batch[0].Pair()
	if got, want := dst.Counter().Count(pair), src.Counter().Count(pair); got != want {
		t.Errorf("expected pair count %d, got %d", want, got)
	}

	want, _ := src.Transform(batch)
	got, _ := dst.Transform(batch)
	for i := range want {
		for j := range want[i] {
			if !near(want[i][j], got[i][j]) {
				t.Fatalf("row %d %s: expected %v, got %v", i, FeatureNames[j], want[i][j], got[i][j])
			}
		}
	}

	if err := dst.Load(filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Error("expected error for missing file")
	}
}
