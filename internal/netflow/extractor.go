package netflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/netip"
	"strings"
	"sync"

	"github.com/nao1215/defensys/internal/forest"
	"github.com/nao1215/defensys/internal/model"
	"github.com/nao1215/defensys/internal/stats"
)

// ErrScalerNotFitted is returned by Transform before Fit.
var ErrScalerNotFitted = errors.New("netflow: extractor must be fit before transform")

// Extractor maps flow batches to network feature vectors.
// It owns an IPPairCounter whose state persists across calls, and an
// optional scaler that standardizes output once fitted.
type Extractor struct {
	heuristics Heuristics
	counter    *IPPairCounter
	logger     *slog.Logger

	mu     sync.RWMutex
	scaler *forest.StandardScaler
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHeuristics replaces the default heuristic constants.
func WithHeuristics(h Heuristics) Option {
	return func(e *Extractor) {
		e.heuristics = h
	}
}

// WithCounter injects the IP pair counter. Extractors sharing a counter see
// each other's observations.
func WithCounter(c *IPPairCounter) Option {
	return func(e *Extractor) {
		if c != nil {
			e.counter = c
		}
	}
}

// WithScaler attaches a scaler. A fitted scaler is applied to every output.
func WithScaler(s *forest.StandardScaler) Option {
	return func(e *Extractor) {
		e.scaler = s
	}
}

// WithLogger sets the logger used for per-record diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an Extractor with a fresh counter and no scaler.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		heuristics: DefaultHeuristics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.counter == nil {
		e.counter = NewIPPairCounter()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Counter returns the extractor's IP pair counter.
func (e *Extractor) Counter() *IPPairCounter {
	return e.counter
}

// Heuristics returns the constants in use.
func (e *Extractor) Heuristics() Heuristics {
	return e.heuristics
}

// Fitted reports whether a fitted scaler is attached.
func (e *Extractor) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scaler != nil && e.scaler.Fitted
}

// Scaler returns the attached scaler, which may be nil.
func (e *Extractor) Scaler() *forest.StandardScaler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scaler
}

// Preprocess decodes in and extracts its feature matrix.
func (e *Extractor) Preprocess(ctx context.Context, in Input) ([][]float64, error) {
	batch, err := Decode(ctx, in, e.logger)
	if err != nil {
		return nil, err
	}
	return e.Extract(batch), nil
}

// Extract returns one feature vector per record, in FeatureNames order.
// When a fitted scaler is attached the vectors are standardized.
func (e *Extractor) Extract(batch model.FlowBatch) [][]float64 {
	rows := e.engineer(batch)

	e.mu.RLock()
	scaler := e.scaler
	e.mu.RUnlock()
	if scaler == nil || !scaler.Fitted || len(rows) == 0 {
		return rows
	}

	scaled, err := scaler.Transform(rows)
	if err != nil {
		// only reachable with a scaler fitted on a different width
		e.logger.Warn("scaler rejected feature matrix, returning unscaled features", "error", err)
		return rows
	}
	return scaled
}

// Fit engineers features for batch and fits the extractor's scaler on them.
// Fitting observes the batch's IP pairs like any other call.
func (e *Extractor) Fit(batch model.FlowBatch) error {
	_, err := e.fit(batch)
	return err
}

// Transform is Extract restricted to fitted extractors.
func (e *Extractor) Transform(batch model.FlowBatch) ([][]float64, error) {
	if !e.Fitted() {
		return nil, ErrScalerNotFitted
	}
	return e.Extract(batch), nil
}

// FitTransform fits the scaler on batch and returns the standardized
// features. The batch is engineered once, so its IP pairs are counted once.
func (e *Extractor) FitTransform(batch model.FlowBatch) ([][]float64, error) {
	rows, err := e.fit(batch)
	if err != nil {
		return nil, err
	}
	return e.Scaler().Transform(rows)
}

func (e *Extractor) fit(batch model.FlowBatch) ([][]float64, error) {
	rows := e.engineer(batch)
	scaler := forest.NewStandardScaler()
	if err := scaler.Fit(rows); err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}

	e.mu.Lock()
	e.scaler = scaler
	e.mu.Unlock()
	return rows, nil
}

// engineer computes the unscaled feature matrix.
func (e *Extractor) engineer(batch model.FlowBatch) [][]float64 {
	rows := make([][]float64, len(batch))
	for i, r := range batch {
		rows[i] = e.rowFeatures(r)
	}
	if len(batch) > 0 {
		e.batchFeatures(batch, rows)
	}
	return rows
}

// rowFeatures computes every column that depends only on the record itself.
func (e *Extractor) rowFeatures(r model.FlowRecord) []float64 {
	h := e.heuristics
	v := make([]float64, NumFeatures)

	duration, ok := r.Duration()
	if !ok {
		duration = h.DefaultDuration
	}
	bytesIn, bytesOut := deref(r.BytesIn), deref(r.BytesOut)
	packetsIn, packetsOut := deref(r.PacketsIn), deref(r.PacketsOut)
	totalBytes := bytesIn + bytesOut
	totalPackets := packetsIn + packetsOut

	v[ColFlowDuration] = duration
	v[ColFlowBytesIn] = bytesIn
	v[ColFlowBytesOut] = bytesOut
	v[ColFlowPacketsIn] = packetsIn
	v[ColFlowPacketsOut] = packetsOut
	v[ColFlowBytesPerSec] = stats.SafeDiv(totalBytes, duration, h.MinDuration)
	v[ColFlowPacketsPerSec] = stats.SafeDiv(totalPackets, duration, h.MinDuration)
	avg := stats.SafeDiv(totalBytes, totalPackets, 1)
	v[ColFlowAvgPacketSize] = avg

	// No per-packet timing in a flow summary: fixed estimates.
	v[ColFlowIATMean] = h.IATMean
	v[ColFlowIATStd] = h.IATStd
	v[ColFlowIATMax] = h.IATMax
	v[ColFlowIATMin] = h.IATMin
	v[ColActiveTime] = duration * h.ActiveFraction
	v[ColIdleTime] = duration * h.IdleFraction

	// No per-packet sizes either: scaled from the average.
	v[ColPacketSizeMean] = avg
	v[ColPacketSizeStd] = avg * h.PacketSizeStdFactor
	v[ColPacketSizeMin] = avg * h.PacketSizeMinFactor
	v[ColPacketSizeMax] = avg * h.PacketSizeMaxFactor
	v[ColPacketLenVariance] = v[ColPacketSizeStd] * v[ColPacketSizeStd]

	var flagTotal float64
	for i, name := range model.TCPFlagNames {
		count := r.Flag(name)
		v[ColFINFlagCount+i] = count
		flagTotal += count
	}
	v[ColFINFlagRate] = stats.SafeDiv(v[ColFINFlagCount], flagTotal, 1)
	v[ColSYNFlagRate] = stats.SafeDiv(v[ColSYNFlagCount], flagTotal, 1)
	v[ColRSTFlagRate] = stats.SafeDiv(v[ColRSTFlagCount], flagTotal, 1)

	if r.Protocol == nil {
		v[ColIsTCP] = 1
	} else {
		proto := strings.TrimSpace(*r.Protocol)
		v[ColIsTCP] = stats.BoolToFloat(strings.EqualFold(proto, "TCP"))
		v[ColIsUDP] = stats.BoolToFloat(strings.EqualFold(proto, "UDP"))
		v[ColIsICMP] = stats.BoolToFloat(strings.EqualFold(proto, "ICMP"))
	}

	for _, s := range servicePorts {
		v[s.col] = stats.BoolToFloat(portIs(r.SrcPort, s.port) || portIs(r.DstPort, s.port))
	}
	if r.SrcPort != nil {
		v[ColSourcePortIsWellKnown] = stats.BoolToFloat(*r.SrcPort < h.WellKnownPortLimit)
	}
	if r.DstPort != nil {
		v[ColDestPortIsWellKnown] = stats.BoolToFloat(*r.DstPort < h.WellKnownPortLimit)
	}

	src, srcOK := e.addr("src_ip", r.SrcIP)
	dst, dstOK := e.addr("dst_ip", r.DstIP)
	if srcOK {
		v[ColSrcIPIsPrivate] = stats.BoolToFloat(isPrivate(src))
	}
	if dstOK {
		v[ColDstIPIsPrivate] = stats.BoolToFloat(isPrivate(dst))
	}
	if srcOK && dstOK {
		v[ColIPSameSubnet] = stats.BoolToFloat(sameSubnet(src, dst, h.SubnetBits))
	}

	v[ColFragmentCount] = 0
	v[ColAvgFragmentSize] = 0
	return v
}

// batchFeatures fills the columns computed across the whole batch:
// entropies, the port-scan score, IP pair counts and the anomaly score.
func (e *Extractor) batchFeatures(batch model.FlowBatch, rows [][]float64) {
	h := e.heuristics

	var entSrc, entDst, scan float64
	if len(batch) > h.EntropyMinRows {
		var srcPorts, dstPorts []int
		for _, r := range batch {
			if r.SrcPort != nil {
				srcPorts = append(srcPorts, *r.SrcPort)
			}
			if r.DstPort != nil {
				dstPorts = append(dstPorts, *r.DstPort)
			}
		}
		entSrc = stats.Entropy(srcPorts)
		entDst = stats.Entropy(dstPorts)
		scan = PortScanScore(batch, h.PortScan)
	}

	sizes := make([]string, len(rows))
	for i, row := range rows {
		sizes[i] = stats.Symbol(row[ColFlowAvgPacketSize])
	}
	entSize := stats.Entropy(sizes)
	total := (entSrc + entDst + entSize) / 3

	// Increment every pair of the batch before reading any count.
	var pairs []model.IPPair
	var pairRows []int
	for i, r := range batch {
		if r.HasPair() {
			pairs = append(pairs, r.Pair())
			pairRows = append(pairRows, i)
		}
	}
	counts := e.counter.Observe(pairs)
	for j, i := range pairRows {
		rows[i][ColIPCommunicationCount] = float64(counts[j])
	}

	for _, v := range rows {
		v[ColEntropySrcPort] = entSrc
		v[ColEntropyDstPort] = entDst
		v[ColEntropyPacketSize] = entSize
		v[ColTotalEntropy] = total
		v[ColPortScanProbability] = scan

		anomaly := math.Abs(entDst-h.AnomalyEntropyCenter) +
			h.AnomalySYNWeight*v[ColSYNFlagRate] +
			h.AnomalyRSTWeight*v[ColRSTFlagRate] -
			h.AnomalyWellKnownWeight*v[ColDestPortIsWellKnown]
		v[ColProtocolAnomalyScore] = stats.Clip(anomaly, 0, h.AnomalyMax)
	}
}

// addr parses an optional address field, logging malformed values.
func (e *Extractor) addr(field string, raw *string) (netip.Addr, bool) {
	if raw == nil {
		return netip.Addr{}, false
	}
	a, err := parseAddr(field, *raw)
	if err != nil {
		e.logger.Debug("using fallback for malformed address", "error", err)
		return netip.Addr{}, false
	}
	return a, true
}

// portIs reports whether an optional port equals want.
func portIs(port *int, want int) bool {
	return port != nil && *port == want
}

// deref returns *p, or 0 for nil.
func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
