package netflow

// Column indices of the network feature vector.
const (
	ColFlowDuration = iota
	ColFlowBytesPerSec
	ColFlowPacketsPerSec
	ColFlowAvgPacketSize
	ColFlowBytesIn
	ColFlowBytesOut
	ColFlowPacketsIn
	ColFlowPacketsOut
	ColFlowIATMean
	ColFlowIATStd
	ColFlowIATMax
	ColFlowIATMin
	ColActiveTime
	ColIdleTime

	ColPacketSizeMean
	ColPacketSizeStd
	ColPacketSizeMin
	ColPacketSizeMax
	ColPacketLenVariance

	ColFINFlagCount
	ColSYNFlagCount
	ColRSTFlagCount
	ColPSHFlagCount
	ColACKFlagCount
	ColURGFlagCount
	ColFINFlagRate
	ColSYNFlagRate
	ColRSTFlagRate

	ColIsTCP
	ColIsUDP
	ColIsICMP
	ColIsHTTP
	ColIsHTTPS
	ColIsDNS
	ColIsSSH
	ColIsSMTP
	ColIsFTP
	ColIsIRC
	ColSourcePortIsWellKnown
	ColDestPortIsWellKnown

	ColSrcIPIsPrivate
	ColDstIPIsPrivate
	ColIPSameSubnet
	ColIPCommunicationCount

	ColEntropySrcPort
	ColEntropyDstPort
	ColEntropyPacketSize
	ColTotalEntropy
	ColFragmentCount
	ColAvgFragmentSize
	ColPortScanProbability
	ColProtocolAnomalyScore

	// NumFeatures is the width of the network feature vector.
	NumFeatures
)

// FeatureNames lists the column names in vector order.
var FeatureNames = [NumFeatures]string{
	ColFlowDuration:      "flow_duration",
	ColFlowBytesPerSec:   "flow_bytes_per_sec",
	ColFlowPacketsPerSec: "flow_packets_per_sec",
	ColFlowAvgPacketSize: "flow_avg_packet_size",
	ColFlowBytesIn:       "flow_bytes_in",
	ColFlowBytesOut:      "flow_bytes_out",
	ColFlowPacketsIn:     "flow_packets_in",
	ColFlowPacketsOut:    "flow_packets_out",
	ColFlowIATMean:       "flow_iat_mean",
	ColFlowIATStd:        "flow_iat_std",
	ColFlowIATMax:        "flow_iat_max",
	ColFlowIATMin:        "flow_iat_min",
	ColActiveTime:        "active_time",
	ColIdleTime:          "idle_time",

	ColPacketSizeMean:    "packet_size_mean",
	ColPacketSizeStd:     "packet_size_std",
	ColPacketSizeMin:     "packet_size_min",
	ColPacketSizeMax:     "packet_size_max",
	ColPacketLenVariance: "packet_len_variance",

	ColFINFlagCount: "fin_flag_count",
	ColSYNFlagCount: "syn_flag_count",
	ColRSTFlagCount: "rst_flag_count",
	ColPSHFlagCount: "psh_flag_count",
	ColACKFlagCount: "ack_flag_count",
	ColURGFlagCount: "urg_flag_count",
	ColFINFlagRate:  "fin_flag_rate",
	ColSYNFlagRate:  "syn_flag_rate",
	ColRSTFlagRate:  "rst_flag_rate",

	ColIsTCP:                 "is_tcp",
	ColIsUDP:                 "is_udp",
	ColIsICMP:                "is_icmp",
	ColIsHTTP:                "is_http",
	ColIsHTTPS:               "is_https",
	ColIsDNS:                 "is_dns",
	ColIsSSH:                 "is_ssh",
	ColIsSMTP:                "is_smtp",
	ColIsFTP:                 "is_ftp",
	ColIsIRC:                 "is_irc",
	ColSourcePortIsWellKnown: "source_port_is_wellknown",
	ColDestPortIsWellKnown:   "dest_port_is_wellknown",

	ColSrcIPIsPrivate:       "src_ip_is_private",
	ColDstIPIsPrivate:       "dst_ip_is_private",
	ColIPSameSubnet:         "ip_same_subnet",
	ColIPCommunicationCount: "ip_communication_count",

	ColEntropySrcPort:       "entropy_src_port",
	ColEntropyDstPort:       "entropy_dst_port",
	ColEntropyPacketSize:    "entropy_packet_size",
	ColTotalEntropy:         "total_entropy",
	ColFragmentCount:        "fragment_count",
	ColAvgFragmentSize:      "avg_fragment_size",
	ColPortScanProbability:  "port_scan_probability",
	ColProtocolAnomalyScore: "protocol_anomaly_score",
}

// Names returns a copy of FeatureNames as a slice.
func Names() []string {
	out := make([]string, NumFeatures)
	copy(out, FeatureNames[:])
	return out
}

// servicePorts maps the service one-hot columns to their well-known port.
var servicePorts = []struct {
	col  int
	port int
}{
	{ColIsHTTP, 80},
	{ColIsHTTPS, 443},
	{ColIsDNS, 53},
	{ColIsSSH, 22},
	{ColIsSMTP, 25},
	{ColIsFTP, 21},
	{ColIsIRC, 6667},
}

// Vector is one row of the network feature matrix.
type Vector []float64

// Named returns the row keyed by column name.
func (v Vector) Named() map[string]float64 {
	out := make(map[string]float64, len(v))
	for i, x := range v {
		if i < NumFeatures {
			out[FeatureNames[i]] = x
		}
	}
	return out
}
