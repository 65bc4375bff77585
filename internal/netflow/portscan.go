package netflow

import (
	"github.com/nao1215/defensys/internal/model"
)

// scanGroup accumulates the flows of one (src, dst) pair.
type scanGroup struct {
	ports map[int]struct{}
	syn   bool
	flows int
	low   int
}

// PortScanScore scores how much the batch looks like a port scan.
//
// Flows are grouped by (src_ip, dst_ip). A group scores 0 unless it touches
// more than MinUniquePorts distinct destination ports; otherwise it scores
// min(1, ports/PortNormalizer) plus SYNBonus when any flow carries SYN and
// LowBytesBonus when at least LowBytesFraction of its flows sent fewer than
// LowBytesThreshold bytes, capped at 1. The batch score is the highest group
// score, or 0 for batches with fewer than two rows or without addressed
// flows carrying destination ports.
func PortScanScore(batch model.FlowBatch, h PortScanHeuristics) float64 {
	if len(batch) < 2 {
		return 0
	}

	groups := make(map[model.IPPair]*scanGroup)
	for _, r := range batch {
		if !r.HasPair() {
			continue
		}
		pair := r.Pair()
		g, ok := groups[pair]
		if !ok {
			g = &scanGroup{ports: make(map[int]struct{})}
			groups[pair] = g
		}
		g.flows++
		if r.DstPort != nil {
			g.ports[*r.DstPort] = struct{}{}
		}
		if r.Flag(model.FlagSYN) > 0 {
			g.syn = true
		}
		if r.BytesOut != nil && *r.BytesOut < h.LowBytesThreshold {
			g.low++
		}
	}

	best := 0.0
	for _, g := range groups {
		best = max(best, g.score(h))
	}
	return best
}

// score returns the group's port-scan score.
func (g *scanGroup) score(h PortScanHeuristics) float64 {
	unique := len(g.ports)
	if unique <= h.MinUniquePorts {
		return 0
	}
	score := min(1, float64(unique)/h.PortNormalizer)
	if g.syn {
		score += h.SYNBonus
	}
	if g.flows > 0 && float64(g.low)/float64(g.flows) >= h.LowBytesFraction {
		score += h.LowBytesBonus
	}
	return min(1, score)
}
