package model

import (
	"encoding/json"
	"testing"
)

func TestFlowRecordDuration(t *testing.T) {
	t.Parallel()

	t.Run("both timestamps present", func(t *testing.T) {
		t.Parallel()
		r := FlowRecord{StartTime: Ptr(100.0), EndTime: Ptr(130.5)}
		d, ok := r.Duration()
		if !ok || d != 30.5 {
			t.Errorf("expected (30.5, true), got (%v, %v)", d, ok)
		}
	})

	t.Run("missing end time", func(t *testing.T) {
		t.Parallel()
		r := FlowRecord{StartTime: Ptr(100.0)}
		if _, ok := r.Duration(); ok {
			t.Error("expected duration to be unavailable")
		}
	})
}

func TestFlowRecordPair(t *testing.T) {
	t.Parallel()

	r := FlowRecord{SrcIP: Ptr("10.0.0.1"), DstIP: Ptr("10.0.0.2")}
	if got := r.Pair().String(); got != "10.0.0.1-10.0.0.2" {
		t.Errorf("expected 10.0.0.1-10.0.0.2, got %s", got)
	}

	if (FlowRecord{SrcIP: Ptr("10.0.0.1")}).HasPair() {
		t.Error("expected HasPair to be false with only a source address")
	}
}

func TestFlowRecordJSON(t *testing.T) {
	t.Parallel()

	raw := `{"src_ip":"192.168.1.100","dst_port":80,"protocol":"tcp","tcp_flags":{"SYN":1,"ACK":12}}`
	var r FlowRecord
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.SrcIP == nil || *r.SrcIP != "192.168.1.100" {
		t.Errorf("expected src_ip to be decoded, got %v", r.SrcIP)
	}
	if r.DstIP != nil {
		t.Error("expected dst_ip to stay absent")
	}
	if r.Flag(FlagSYN) != 1 || r.Flag(FlagACK) != 12 || r.Flag(FlagRST) != 0 {
		t.Errorf("unexpected flags: %v", r.TCPFlags)
	}
}
