package netflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/nao1215/defensys/internal/model"
)

// flowKey identifies a flow in the direction of its first packet.
type flowKey struct {
	src, dst         string
	srcPort, dstPort int
	proto            string
}

// reverse returns the key of the opposite direction.
func (k flowKey) reverse() flowKey {
	return flowKey{src: k.dst, dst: k.src, srcPort: k.dstPort, dstPort: k.srcPort, proto: k.proto}
}

// flowState accumulates one flow.
type flowState struct {
	key        flowKey
	hasPorts   bool
	bytesOut   float64
	bytesIn    float64
	packetsOut float64
	packetsIn  float64
	first      time.Time
	last       time.Time
	flags      map[string]float64
}

// flowAggregator folds packets into bidirectional flows keyed by 5-tuple.
// The first packet of a flow defines its source side: bytes and packets it
// sends are "out", replies are "in".
type flowAggregator struct {
	flows map[flowKey]*flowState
	order []*flowState
}

func newFlowAggregator() *flowAggregator {
	return &flowAggregator{flows: make(map[flowKey]*flowState)}
}

// add folds one decoded packet. It reports false for packets without a
// network layer.
func (a *flowAggregator) add(packet gopacket.Packet, ci gopacket.CaptureInfo) bool {
	netLayer := packet.NetworkLayer()
	if netLayer == nil {
		return false
	}
	src, dst := netLayer.NetworkFlow().Endpoints()
	key := flowKey{src: src.String(), dst: dst.String()}
	var flags []string
	hasPorts := false

	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		tcp, _ := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		key.proto = "TCP"
		key.srcPort, key.dstPort = int(tcp.SrcPort), int(tcp.DstPort)
		hasPorts = true
		flags = tcpFlags(tcp)
	case packet.Layer(layers.LayerTypeUDP) != nil:
		udp, _ := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		key.proto = "UDP"
		key.srcPort, key.dstPort = int(udp.SrcPort), int(udp.DstPort)
		hasPorts = true
	case packet.Layer(layers.LayerTypeICMPv4) != nil, packet.Layer(layers.LayerTypeICMPv6) != nil:
		key.proto = "ICMP"
	default:
		key.proto = netLayer.LayerType().String()
	}

	size := float64(ci.Length)
	if size == 0 {
		size = float64(len(packet.Data()))
	}

	forward := true
	st, ok := a.flows[key]
	if !ok {
		if rev, found := a.flows[key.reverse()]; found {
			st, forward = rev, false
		}
	}
	if st == nil {
		st = &flowState{key: key, hasPorts: hasPorts, first: ci.Timestamp, flags: make(map[string]float64)}
		a.flows[key] = st
		a.order = append(a.order, st)
	}

	if forward {
		st.bytesOut += size
		st.packetsOut++
	} else {
		st.bytesIn += size
		st.packetsIn++
	}
	if ci.Timestamp.Before(st.first) {
		st.first = ci.Timestamp
	}
	if ci.Timestamp.After(st.last) {
		st.last = ci.Timestamp
	}
	for _, f := range flags {
		st.flags[f]++
	}
	return true
}

// records returns one FlowRecord per flow in first-seen order.
func (a *flowAggregator) records() model.FlowBatch {
	batch := make(model.FlowBatch, 0, len(a.order))
	for _, st := range a.order {
		r := model.FlowRecord{
			SrcIP:      model.Ptr(st.key.src),
			DstIP:      model.Ptr(st.key.dst),
			Protocol:   model.Ptr(st.key.proto),
			BytesIn:    model.Ptr(st.bytesIn),
			BytesOut:   model.Ptr(st.bytesOut),
			PacketsIn:  model.Ptr(st.packetsIn),
			PacketsOut: model.Ptr(st.packetsOut),
			StartTime:  model.Ptr(unixSeconds(st.first)),
			EndTime:    model.Ptr(unixSeconds(st.last)),
		}
		if st.hasPorts {
			r.SrcPort = model.Ptr(st.key.srcPort)
			r.DstPort = model.Ptr(st.key.dstPort)
		}
		if st.key.proto == "TCP" {
			r.TCPFlags = st.flags
		}
		batch = append(batch, r)
	}
	return batch
}

// tcpFlags lists the flags set on a TCP segment.
func tcpFlags(tcp *layers.TCP) []string {
	var out []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{tcp.FIN, model.FlagFIN},
		{tcp.SYN, model.FlagSYN},
		{tcp.RST, model.FlagRST},
		{tcp.PSH, model.FlagPSH},
		{tcp.ACK, model.FlagACK},
		{tcp.URG, model.FlagURG},
	} {
		if f.set {
			out = append(out, f.name)
		}
	}
	return out
}

// unixSeconds converts t to fractional unix seconds.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ReadPCAP summarizes an offline capture file into flow records. Packets
// that cannot be decoded down to a network layer are skipped.
func ReadPCAP(ctx context.Context, path string, logger *slog.Logger) (model.FlowBatch, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path) //nolint:gosec // user-provided capture path is intentional
	if err != nil {
		return nil, model.NewInputFormatError(fmt.Sprintf("cannot open capture %s: %v", path, err), AcceptedFormats)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, model.NewInputFormatError(fmt.Sprintf("invalid pcap file %s: %v", path, err), AcceptedFormats)
	}

	agg := newFlowAggregator()
	decodeOpts := gopacket.DecodeOptions{Lazy: true, NoCopy: true}
	skipped := 0

	for n := 0; ; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A truncated trailing record ends the capture.
			logger.Warn("stopping at unreadable packet", "path", path, "packet", n, "error", err)
			break
		}

		packet := gopacket.NewPacket(data, reader.LinkType(), decodeOpts)
		if !agg.add(packet, ci) {
			skipped++
		}
	}

	if skipped > 0 {
		logger.Debug("skipped packets without a network layer", "path", path, "count", skipped)
	}
	return agg.records(), nil
}
