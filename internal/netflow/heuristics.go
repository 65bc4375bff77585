package netflow

// PortScanHeuristics tunes the port-scan score.
type PortScanHeuristics struct {
	// MinUniquePorts is the number of distinct destination ports a pair must
	// exceed before it scores at all.
	MinUniquePorts int `yaml:"min_unique_ports"`

	// PortNormalizer divides the unique port count into the base score.
	PortNormalizer float64 `yaml:"port_normalizer"`

	// SYNBonus is added when any flow of the pair carries a SYN flag.
	SYNBonus float64 `yaml:"syn_bonus"`

	// LowBytesBonus is added when at least LowBytesFraction of the pair's
	// flows sent fewer than LowBytesThreshold bytes.
	LowBytesBonus     float64 `yaml:"low_bytes_bonus"`
	LowBytesThreshold float64 `yaml:"low_bytes_threshold"`
	LowBytesFraction  float64 `yaml:"low_bytes_fraction"`
}

// Heuristics holds every constant the extractor uses in place of data it
// does not have. None of them is calibrated; they are kept configurable.
type Heuristics struct {
	// DefaultDuration is the flow duration assumed without timestamps.
	DefaultDuration float64 `yaml:"default_duration"`

	// MinDuration is the lower bound applied to durations used as divisors.
	MinDuration float64 `yaml:"min_duration"`

	IATMean float64 `yaml:"iat_mean"`
	IATStd  float64 `yaml:"iat_std"`
	IATMax  float64 `yaml:"iat_max"`
	IATMin  float64 `yaml:"iat_min"`

	// ActiveFraction and IdleFraction split the duration into active and
	// idle time.
	ActiveFraction float64 `yaml:"active_fraction"`
	IdleFraction   float64 `yaml:"idle_fraction"`

	// Packet size statistics are the average packet size times these factors.
	PacketSizeStdFactor float64 `yaml:"packet_size_std_factor"`
	PacketSizeMinFactor float64 `yaml:"packet_size_min_factor"`
	PacketSizeMaxFactor float64 `yaml:"packet_size_max_factor"`

	// EntropyMinRows is the batch size that must be exceeded before port
	// entropies and the port-scan score are computed.
	EntropyMinRows int `yaml:"entropy_min_rows"`

	// WellKnownPortLimit is the exclusive upper bound of well-known ports.
	WellKnownPortLimit int `yaml:"well_known_port_limit"`

	// SubnetBits is the prefix length used for ip_same_subnet.
	SubnetBits int `yaml:"subnet_bits"`

	// protocol_anomaly_score = |entropy_dst_port - AnomalyEntropyCenter|
	//   + AnomalySYNWeight*syn_rate + AnomalyRSTWeight*rst_rate
	//   - AnomalyWellKnownWeight*dest_port_is_wellknown, clipped to [0, AnomalyMax]
	AnomalyEntropyCenter   float64 `yaml:"anomaly_entropy_center"`
	AnomalySYNWeight       float64 `yaml:"anomaly_syn_weight"`
	AnomalyRSTWeight       float64 `yaml:"anomaly_rst_weight"`
	AnomalyWellKnownWeight float64 `yaml:"anomaly_wellknown_weight"`
	AnomalyMax             float64 `yaml:"anomaly_max"`

	PortScan PortScanHeuristics `yaml:"port_scan"`
}

// DefaultHeuristics returns the stock constants.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		DefaultDuration:        30,
		MinDuration:            0.1,
		IATMean:                0.1,
		IATStd:                 0.05,
		IATMax:                 0.5,
		IATMin:                 0.01,
		ActiveFraction:         0.8,
		IdleFraction:           0.2,
		PacketSizeStdFactor:    0.3,
		PacketSizeMinFactor:    0.5,
		PacketSizeMaxFactor:    1.5,
		EntropyMinRows:         5,
		WellKnownPortLimit:     1024,
		SubnetBits:             24,
		AnomalyEntropyCenter:   2,
		AnomalySYNWeight:       5,
		AnomalyRSTWeight:       5,
		AnomalyWellKnownWeight: 0.5,
		AnomalyMax:             10,
		PortScan: PortScanHeuristics{
			MinUniquePorts:    10,
			PortNormalizer:    100,
			SYNBonus:          0.2,
			LowBytesBonus:     0.2,
			LowBytesThreshold: 100,
			LowBytesFraction:  0.7,
		},
	}
}
