package model

import "time"

// ReputationRecord is the result of a reputation lookup for one URL.
// A failed lookup yields a record with InDatabase false and Error set.
type ReputationRecord struct {
	URL              string    `json:"url"`
	InDatabase       bool      `json:"in_database"`
	Phishing         bool      `json:"phish"`
	Verified         bool      `json:"verified"`
	VerificationTime string    `json:"verification_time,omitempty"`
	FromCache        bool      `json:"from_cache"`
	Error            string    `json:"error,omitempty"`
	CacheTime        time.Time `json:"-"`
}

// Failed reports whether the lookup degraded to an unknown result.
func (r ReputationRecord) Failed() bool {
	return r.Error != ""
}

// Verdict is a final phishing decision with its confidence.
type Verdict struct {
	IsPhishing bool    `json:"is_phishing"`
	Confidence float64 `json:"confidence"`
}

// ReputationSummary is the reputation portion of an EnrichedPrediction.
type ReputationSummary struct {
	Checked    bool   `json:"checked"`
	InDatabase bool   `json:"in_database"`
	IsPhishing bool   `json:"is_phishing"`
	Verified   bool   `json:"verified"`
	FromCache  bool   `json:"from_cache"`
	Error      string `json:"error,omitempty"`
}

// EnrichedPrediction fuses a phishing model's output with a reputation
// lookup into one final verdict.
type EnrichedPrediction struct {
	URL             string            `json:"url"`
	ModelPrediction Verdict           `json:"model_prediction"`
	Reputation      ReputationSummary `json:"phishtank"`
	FinalVerdict    Verdict           `json:"final_verdict"`
	CheckedAt       time.Time         `json:"checked_at"`
}

// Risk returns the risk band of the final verdict.
func (p EnrichedPrediction) Risk() RiskLevel {
	return RiskFromVerdict(p.FinalVerdict, p.Reputation.InDatabase && p.Reputation.IsPhishing)
}
