package model

// TCP flag names recognized in FlowRecord.TCPFlags.
const (
	FlagFIN = "FIN"
	FlagSYN = "SYN"
	FlagRST = "RST"
	FlagPSH = "PSH"
	FlagACK = "ACK"
	FlagURG = "URG"
)

// TCPFlagNames lists the flags in the order their counts appear in the
// network feature vector.
var TCPFlagNames = []string{FlagFIN, FlagSYN, FlagRST, FlagPSH, FlagACK, FlagURG}

// FlowRecord is an aggregated summary of one network connection.
// No field is guaranteed to be present: a nil pointer (or nil map) means the
// source did not provide the value, and every derived feature has a
// documented default for that case.
type FlowRecord struct {
	SrcIP      *string  `json:"src_ip,omitempty"`
	DstIP      *string  `json:"dst_ip,omitempty"`
	SrcPort    *int     `json:"src_port,omitempty"`
	DstPort    *int     `json:"dst_port,omitempty"`
	Protocol   *string  `json:"protocol,omitempty"`
	BytesIn    *float64 `json:"bytes_in,omitempty"`
	BytesOut   *float64 `json:"bytes_out,omitempty"`
	PacketsIn  *float64 `json:"packets_in,omitempty"`
	PacketsOut *float64 `json:"packets_out,omitempty"`

	// StartTime and EndTime are unix timestamps in seconds.
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`

	// TCPFlags maps flag names (FIN, SYN, RST, PSH, ACK, URG) to counts.
	TCPFlags map[string]float64 `json:"tcp_flags,omitempty"`
}

// Ptr returns a pointer to v. It keeps FlowRecord literals readable.
func Ptr[T any](v T) *T {
	return &v
}

// Duration returns EndTime-StartTime when both are present.
func (r FlowRecord) Duration() (float64, bool) {
	if r.StartTime == nil || r.EndTime == nil {
		return 0, false
	}
	return *r.EndTime - *r.StartTime, true
}

// HasPair reports whether both endpoints are known.
func (r FlowRecord) HasPair() bool {
	return r.SrcIP != nil && r.DstIP != nil
}

// Pair returns the ordered (src, dst) endpoint pair.
// It returns the zero IPPair when either side is unknown.
func (r FlowRecord) Pair() IPPair {
	if !r.HasPair() {
		return IPPair{}
	}
	return IPPair{Src: *r.SrcIP, Dst: *r.DstIP}
}

// Flag returns the count of the named TCP flag, or 0 when absent.
func (r FlowRecord) Flag(name string) float64 {
	if r.TCPFlags == nil {
		return 0
	}
	return r.TCPFlags[name]
}

// IPPair is an ordered source/destination address pair.
type IPPair struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// String returns "src-dst".
func (p IPPair) String() string {
	return p.Src + "-" + p.Dst
}

// FlowBatch is the tabular batch handed to the network extractor.
type FlowBatch []FlowRecord

// Len returns the number of rows in the batch.
func (b FlowBatch) Len() int {
	return len(b)
}
