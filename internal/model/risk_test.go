package model

import "testing"

func TestRiskLevelString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		level    RiskLevel
		expected string
	}{
		{RiskNone, "NONE"},
		{RiskLow, "LOW"},
		{RiskMedium, "MEDIUM"},
		{RiskHigh, "HIGH"},
		{RiskConfirmed, "CONFIRMED"},
		{RiskLevel(42), "UNKNOWN"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.level.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.level.String(), tc.expected)
			}
		})
	}
}

func TestRiskFromVerdict(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		verdict   Verdict
		confirmed bool
		expected  RiskLevel
	}{
		{"confirmed wins over benign verdict", Verdict{IsPhishing: false, Confidence: 0.1}, true, RiskConfirmed},
		{"confident phishing", Verdict{IsPhishing: true, Confidence: 0.9}, false, RiskHigh},
		{"weak phishing", Verdict{IsPhishing: true, Confidence: 0.55}, false, RiskMedium},
		{"benign with moderate probability", Verdict{IsPhishing: false, Confidence: 0.45}, false, RiskLow},
		{"clearly benign", Verdict{IsPhishing: false, Confidence: 0.05}, false, RiskNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RiskFromVerdict(tc.verdict, tc.confirmed); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestEnrichedPredictionRisk(t *testing.T) {
	t.Parallel()

	p := EnrichedPrediction{
		URL:          "http://example.com",
		Reputation:   ReputationSummary{Checked: true, InDatabase: true, IsPhishing: true},
		FinalVerdict: Verdict{IsPhishing: true, Confidence: 0.95},
	}
	if p.Risk() != RiskConfirmed {
		t.Errorf("expected CONFIRMED, got %s", p.Risk())
	}
}
