package model

// RiskLevel is a coarse banding of a final phishing verdict used by the
// report writers to sort and color results.
type RiskLevel int

const (
	// RiskNone indicates a benign verdict with high confidence.
	RiskNone RiskLevel = iota

	// RiskLow indicates a benign verdict the model is unsure about.
	RiskLow

	// RiskMedium indicates a phishing verdict from the model alone with
	// modest confidence.
	RiskMedium

	// RiskHigh indicates a confident phishing verdict.
	RiskHigh

	// RiskConfirmed indicates the reputation service lists the URL as
	// phishing.
	RiskConfirmed
)

// Confidence thresholds used to band verdicts.
const (
	lowRiskThreshold  = 0.3
	highRiskThreshold = 0.8
)

// String returns a human-readable representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskNone:
		return "NONE"
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskConfirmed:
		return "CONFIRMED"
	default:
		return "UNKNOWN"
	}
}

// RiskFromVerdict bands a verdict. confirmed is true when an external
// reputation source lists the URL as phishing.
func RiskFromVerdict(v Verdict, confirmed bool) RiskLevel {
	switch {
	case confirmed:
		return RiskConfirmed
	case v.IsPhishing && v.Confidence >= highRiskThreshold:
		return RiskHigh
	case v.IsPhishing:
		return RiskMedium
	case v.Confidence >= lowRiskThreshold:
		// A benign verdict whose confidence is the raw phishing probability
		// still carries some risk when that probability is not small.
		return RiskLow
	default:
		return RiskNone
	}
}

// AllRiskLevels returns the levels from most to least severe.
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{RiskConfirmed, RiskHigh, RiskMedium, RiskLow, RiskNone}
}
